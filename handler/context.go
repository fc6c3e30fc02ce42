package handler

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/intakebilling/pkg/requestid"
)

// Context is the request-scoped context passed to every HandlerFunc.
// Cancellation and values come from the request's context.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	// RequestID returns the id assigned by requestid.Middleware, or "".
	RequestID() string
}

type httpContext struct {
	context.Context
	w http.ResponseWriter
	r *http.Request
}

// NewContext captures r's context at call time.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &httpContext{Context: r.Context(), w: w, r: r}
}

func (c *httpContext) Request() *http.Request              { return c.r }
func (c *httpContext) ResponseWriter() http.ResponseWriter { return c.w }
func (c *httpContext) RequestID() string                   { return requestid.FromContext(c.Context) }
