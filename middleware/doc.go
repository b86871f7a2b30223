// Package middleware provides HTTP middleware for the gateway router.
//
//   - RequestID assigns a UUID to every request, stores it in the request
//     context and echoes it in the X-Request-ID response header.
//     RequestIDExtractor lets a logger built by core/logger pick it up.
//   - Logging writes one structured record per request with status, size and
//     duration.
//   - BodyLimit caps request bodies and reports oversized ones as 413.
//   - RateLimit refuses callers whose token bucket is empty with 429.
//
// Typical wiring:
//
//	r := router.New(router.WithErrorHandler(response.JSONErrorHandler))
//	r.Use(
//		middleware.RequestID(),
//		middleware.LoggingWithLogger(log),
//		middleware.BodyLimitWithSize(64*middleware.KB),
//	)
//
// The first middleware listed runs first.
package middleware
