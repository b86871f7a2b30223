// Package logger provides structured logging utilities built on Go's standard slog package.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithDevelopment("mini-redis"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log.Info("server starting",
//		logger.Component("server"),
//		logger.Event("startup"),
//	)
//
// Production setups usually switch to JSON:
//
//	log := logger.New(logger.WithProduction("mini-redis"))
//
// # Context-Aware Logging
//
// Extractors inject request-scoped values into every record logged with a context:
//
//	log := logger.New(
//		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
//			id, ok := middleware.RequestIDFromContext(ctx)
//			return logger.RequestID(id), ok
//		}),
//	)
//
// # Attribute Helpers
//
// Helpers keep attribute naming consistent across packages:
//
//	log.Warn("request filtered",
//		logger.Operation("ping"),
//		logger.Result("filtered"),
//		logger.Error(err),
//	)
//
//	log.Debug("channel created",
//		logger.Component("pubsub"),
//		logger.Channel("news"),
//	)
//
// Helpers such as Error and RequestID return an empty attribute for zero
// values, which slog drops.
//
// # Testing
//
// Capture output by writing into a buffer:
//
//	var buf bytes.Buffer
//	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(&buf))
package logger
