// Package environment names the deployment environment the service runs in and
// carries it through request contexts.
//
// Parse normalizes the value read from configuration (aliases such as "prod"
// and "stage" are accepted). Middleware stores it in every request context so
// handlers can decide, for example, whether internal error messages may be
// shown to the caller.
package environment
