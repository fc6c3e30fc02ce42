package binder

import "net/http"

// Header binds fields tagged `header:"Name"`. Untagged fields are ignored
// and missing headers leave the zero value.
func Header() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindFields(v, "header", true, ErrInvalidHeader, r.Header.Values)
	}
}
