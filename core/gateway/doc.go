// Package gateway exposes the data service over HTTP and WebSocket.
//
// All requests pass through the same service.Handler chain, so filters,
// timeouts and operation logging configured with WithServiceMiddleware apply
// equally to every route below.
//
// JSON RPC, used by pkg/client:
//
//	POST /rpc/{op}         body: the JSON request of op, reply: its JSON response
//
// Browser routes, with an HTML form on GET for the posting ones:
//
//	GET  /ping             PONG
//	GET  /ping/{payload}   payload
//	GET  /get/{key}        value, or 404 "not found"
//	POST /set              form key, value
//	POST /del              form keys (space separated), reply: removed count
//	POST /publish          form channel, message, reply: delivered count
//	POST /subscribe        form channels (space separated), optional timeout
//
// Streaming and health:
//
//	GET /ws/subscribe?channel=a&channel=b   every message as JSON
//	GET /health                             store and registry statistics
//	GET /health/live                        ALIVE
//	GET /health/ready                       READY, or 503 when the registry or a WithReadinessCheck check fails
//
// Errors are JSON {"code", "message", "details"}: filtered requests answer
// 403, handler faults 500, malformed input 400, oversized bodies 413,
// subscribe timeouts 504 and a closed registry 503.
//
// Usage:
//
//	gw := gateway.New(svc,
//		gateway.WithLogger(log),
//		gateway.WithServiceMiddleware(
//			service.Logging(log),
//			service.Filter(service.BlockOperations(service.OpPing)),
//		),
//	)
//	srv := server.New(":8080")
//	g.Go(srv.Run(ctx, gw.Handler()))
package gateway
