// Package logger builds *slog.Logger instances with per-environment defaults
// and attributes injected from context.
//
// New applies Option values, selects a text or JSON handler and wraps it with
// LogHandlerDecorator, which runs every registered ContextExtractor on each
// record. The request id extractor from pkg/requestid is the typical one.
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Production, "intakebilling"),
//	    logger.WithConfig(cfg.Log),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "intake activated",
//	    logger.IntakeID(in.ID),
//	    logger.SubscriptionID(sub.ID),
//	)
//
// Attribute helpers (IntakeID, SessionID, SubscriptionID, EventID and so on)
// keep key names consistent across packages and return an empty Attr for
// empty input, so they can be passed unconditionally.
package logger
