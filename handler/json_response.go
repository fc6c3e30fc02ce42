package handler

import (
	"encoding/json"
	"maps"
	"net/http"

	"github.com/dmitrymomot/intakebilling/pkg/requestid"
)

// JSONResponse is the envelope of every JSON body: data on success, error
// otherwise. Error bodies carry the request id in meta when one is set.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

// Render writes the envelope. Responses are never cached since intake
// status changes with every delivered event.
func (j *jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	body := j.body
	if body.Error != nil {
		if id := requestid.FromContext(r.Context()); id != "" {
			meta := maps.Clone(body.Meta)
			if meta == nil {
				meta = make(map[string]any, 1)
			}
			meta["request_id"] = id
			body.Meta = meta
		}
	}

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(body)
}

type JSONOption func(*jsonResponse)

// WithJSONStatus overrides the status code.
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// JSON renders v as data with status 200. Errors are rendered like JSONError.
func JSON(v any, opts ...JSONOption) Response {
	switch v.(type) {
	case error, *ErrorDetail:
		return JSONError(v, opts...)
	}
	return build(&jsonResponse{status: http.StatusOK, body: JSONResponse{Data: v}}, opts)
}

// JSONError renders err as an error body. An error is classified with
// ClassifyError; an *ErrorDetail is rendered as given with status 500
// unless WithJSONStatus says otherwise.
func JSONError(err any, opts ...JSONOption) Response {
	resp := &jsonResponse{status: http.StatusInternalServerError}
	switch e := err.(type) {
	case *ErrorDetail:
		resp.body.Error = e
	case error:
		info := ClassifyError(e)
		resp.status = info.StatusCode
		resp.body.Error = newErrorDetail(e, info)
	default:
		resp.body.Error = newErrorDetail(ErrInternalServerError, ClassifyError(ErrInternalServerError))
	}
	return build(resp, opts)
}

func build(r *jsonResponse, opts []JSONOption) Response {
	for _, opt := range opts {
		opt(r)
	}
	return r
}
