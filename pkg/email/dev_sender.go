package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DevSender implements EmailSender for local development and the simulated
// processor mode. Each message becomes an HTML file plus a JSON metadata file
// sharing one base name: <timestamp>_<tag or subject>.
type DevSender struct {
	dir string
}

// NewDevSender creates a sender writing to dir, created on first send.
func NewDevSender(dir string) EmailSender {
	return &DevSender{dir: dir}
}

type devMessage struct {
	Timestamp string `json:"timestamp"`
	SendTo    string `json:"send_to"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
}

func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return d.fail("create dir", err)
	}

	now := time.Now()
	label := params.Tag
	if label == "" {
		label = params.Subject
	}
	base := filepath.Join(d.dir, now.Format("2006_01_02_150405.000000")+"_"+fileLabel(label))

	meta, err := json.MarshalIndent(devMessage{
		Timestamp: now.Format(time.RFC3339),
		SendTo:    params.SendTo,
		Subject:   params.Subject,
		Tag:       params.Tag,
	}, "", "  ")
	if err != nil {
		return d.fail("encode metadata", err)
	}

	if err := os.WriteFile(base+".html", []byte(params.BodyHTML), 0o644); err != nil {
		return d.fail("write body", err)
	}
	if err := os.WriteFile(base+".json", meta, 0o644); err != nil {
		return d.fail("write metadata", err)
	}
	return nil
}

func (d *DevSender) fail(op string, err error) error {
	return fmt.Errorf("%w: %s in %s: %v", ErrFailedToSendEmail, op, d.dir, err)
}

// fileLabel turns s into a lowercase file-name fragment of at most 100 bytes.
func fileLabel(s string) string {
	const maxLen = 100

	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
		if b.Len() >= maxLen {
			break
		}
	}
	if b.Len() == 0 {
		return "email"
	}
	return b.String()
}
