// internal/api/types/response.go
package types

// Envelope codes.
const (
	CodeOK    = 0
	CodeError = -1
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// OK wraps data in a success envelope.
func OK(message string, data any) Response {
	return Response{Code: CodeOK, Message: message, Data: data}
}

// Fail builds an error envelope.
func Fail(message string) Response {
	return Response{Code: CodeError, Message: message, Data: false}
}

// ListResponse carries a collection with its size.
// T represents the type of data contained in the 'Items' slice.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse builds a ListResponse over items.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}
