package binder

import (
	"fmt"
	"net/http"
)

// Path binds router path parameters. Fields are matched by their `path`
// tag, or by the lowercased field name without one; `path:"-"` skips a field.
//
//	type IntakeIDRequest struct {
//		ID string `path:"id" validate:"required,uuid"`
//	}
//
//	binder.Path(chi.URLParam)
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrInvalidPath)
		}
		return bindFields(v, "path", false, ErrInvalidPath, func(name string) []string {
			if s := extractor(r, name); s != "" {
				return []string{s}
			}
			return nil
		})
	}
}
