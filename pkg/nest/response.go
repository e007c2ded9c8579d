package nest

import "net/http"

// Response lets a handler choose the status code of an automatically
// serialized result.
//
//	func (c *UserController) Create(dto CreateUserDto) *nest.Response {
//		return nest.Created(c.users.Create(dto))
//	}
type Response struct {
	StatusCode int
	Body       any
}

// NewResponse creates a new Response with the specified status code and body
func NewResponse(statusCode int, body any) *Response {
	return &Response{StatusCode: statusCode, Body: body}
}

// OK creates a 200 OK response with the given body
func OK(body any) *Response {
	return NewResponse(http.StatusOK, body)
}

// Created creates a 201 Created response with the given body
func Created(body any) *Response {
	return NewResponse(http.StatusCreated, body)
}

// NoContent creates a 204 No Content response
func NoContent() *Response {
	return NewResponse(http.StatusNoContent, nil)
}

// NotFound creates a 404 response with a {statusCode, message} body
func NotFound(message string) *Response {
	return NewResponse(http.StatusNotFound, map[string]any{
		"statusCode": http.StatusNotFound,
		"message":    message,
	})
}
