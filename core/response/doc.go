// Package response provides handler.Response constructors for common HTTP
// payloads: plain text, HTML, JSON, structured errors and WebSocket sessions.
//
//	func handle(ctx handler.Context) handler.Response {
//		return response.JSON(map[string]string{"status": "OK"})
//	}
//
// # Errors
//
// HTTPError carries a status and a machine-readable code and renders as
// {"code": "...", "message": "...", "details": {...}}. Handlers return it via
// Error and let the router's error handler render it:
//
//	return response.Error(response.ErrNotFound.WithMessage("no such key"))
//
// JSONErrorHandler and ErrorHandler accept any error. Errors exposing
// StatusCode() int keep their status; anything else becomes a 500.
//
// # WebSocket
//
// WebSocket upgrades the request (gorilla/websocket) and hands the connection
// to a session function bound to the request context:
//
//	return response.WebSocket(func(ctx context.Context, conn *websocket.Conn) error {
//		return conn.WriteJSON(msg)
//	}, response.WithWSAllowAnyOrigin())
package response
