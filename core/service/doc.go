// Package service implements the data service operations (ping, set, get,
// del, publish, subscribe) and the middleware stack that wraps them.
//
// # Handlers
//
// Every operation is a typed request handled through one interface:
//
//	type Handler interface {
//		Handle(ctx context.Context, req Request) (any, error)
//	}
//
// Service is the innermost Handler. It owns nothing global: the store and the
// registry are created by the caller and passed in.
//
//	svc := service.New(store.NewMemoryStore(), pubsub.NewRegistry())
//	resp, err := svc.Handle(ctx, service.SetRequest{Key: "k", Value: "v"})
//
// # Middleware
//
// Middleware decorates a Handler and only sees the request/response boundary:
//
//	h := service.Chain(svc,
//		service.Logging(log),
//		service.Filter(service.BlockOperations(service.OpPing)),
//		service.Timeout(30*time.Second, service.OpSubscribe),
//	)
//
// The first middleware is the outermost.
//
// # Errors
//
// Missing keys and unknown channels are not errors; they produce empty or zero
// results. Two structured kinds are reported as *Error:
//
//   - KindFiltered: a Filter rejected the request; the handler never ran
//   - KindHandlerFault: a handler panicked; the panic was recovered
//
// Use errors.Is(err, service.ErrFiltered) or service.KindOf(err) to tell them apart.
//
// A subscribe with no channels, or on channels nobody publishes to, waits
// until its context ends. That is starvation, not a fault.
package service
