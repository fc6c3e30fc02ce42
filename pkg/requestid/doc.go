// Package requestid assigns every HTTP request an id, carried in the
// X-Request-ID header and the request context.
//
// The id ties together the log lines of one request, e.g. a checkout start
// and the processor calls it makes:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
//
// Incoming ids are reused when they are at most 128 characters of letters,
// digits, '-' and '_'; anything else is replaced with a new UUID.
package requestid
