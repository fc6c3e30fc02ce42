// Package binder fills typed request structs from *http.Request values.
//
// Each constructor returns a func(r *http.Request, v any) error that the
// handler package applies in order. A binder that finds nothing to do for a
// struct returns ErrBinderNotApplicable and is skipped.
//
//   - BindJSON decodes an application/json body in strict mode.
//   - Path reads router path parameters through an extractor such as chi.URLParam.
//   - Header reads fields tagged `header:"Name"`.
//   - RawBody keeps the exact body bytes for signature verification.
package binder
