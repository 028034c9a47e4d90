// Package httpdto defines the request and response shapes of the HTTP
// surface. Handlers bind and emit these; domain types never cross the wire
// directly.
package httpdto

// Response is the uniform reply envelope. Success replies carry Data;
// failures carry a human-readable Error plus a stable machine Code that
// clients can branch on.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

func NewErrorResponse(err, code string) Response[any] {
	return Response[any]{Success: false, Error: err, Code: code}
}
