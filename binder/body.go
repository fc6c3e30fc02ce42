package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// RawBody creates a binder that copies the unparsed request body into the
// first []byte field tagged `body:"raw"`. Bodies larger than limit bytes are
// rejected; a non-positive limit means DefaultMaxBodySize.
//
// Use it where the exact bytes matter, such as signed webhook payloads:
//
//	type webhookRequest struct {
//		Payload   []byte `body:"raw"`
//		Signature string `header:"Stripe-Signature"`
//	}
func RawBody(limit int64) func(r *http.Request, v any) error {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}

	return func(r *http.Request, v any) error {
		rv, err := structValue(v, ErrInvalidJSON)
		if err != nil {
			return err
		}

		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Field(i)
			fieldType := rt.Field(i)
			if !field.CanSet() || fieldType.Tag.Get("body") != "raw" {
				continue
			}
			if fieldType.Type != reflect.TypeOf([]byte(nil)) {
				return fmt.Errorf("%w: field %s must be []byte", ErrBinderNotApplicable, fieldType.Name)
			}

			body, err := readLimited(r, limit)
			if err != nil {
				return err
			}
			field.SetBytes(body)
			return nil
		}

		return ErrBinderNotApplicable
	}
}
