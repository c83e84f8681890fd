package service

// Response is the envelope every controller operation returns. Error carries a
// message fit for the end user; Count is set for list results.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count"`
}

func ok[T any](data T, message string) Response[T] {
	return Response[T]{Success: true, Data: data, Message: message}
}

func okList[T any](data []T, message string) Response[[]T] {
	if data == nil {
		data = []T{}
	}
	return Response[[]T]{Success: true, Data: data, Message: message, Count: len(data)}
}

func fail[T any](message string) Response[T] {
	return Response[T]{Error: message}
}
