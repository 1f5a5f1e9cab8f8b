// Package logger builds the slog loggers used across notifysync and keeps
// attribute names consistent.
//
// New takes functional options: WithEnvironment selects level and format per
// deployment (text and debug in development, JSON and info elsewhere),
// WithLevel and WithFormat override them, WithAttr adds static attributes and
// WithContextExtractors / WithContextValue copy request-scoped values such as
// the status API request ID into every record.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "notifyd"),
//	    logger.WithOutput(os.Stderr),
//	)
//	log.LogAttrs(ctx, slog.LevelInfo, "push received",
//	    logger.Component("connection"),
//	    logger.NotificationID(n.ID),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally. Components that take an optional logger fall back
// to Discard or slog.Default.
package logger
