// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the session stream.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Device token was missing, invalid or expired.
	SessionEndedError     = 3002 // The game behind the token no longer exists.
	SlowConsumerError     = 3003 // The client fell too far behind the view stream.
)
