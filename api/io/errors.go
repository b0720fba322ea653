package io

// ErrorResponse is the JSON body returned to clients on error.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// Error is a request error carrying a client-safe message and HTTP
// status code.
type Error struct {
	Err    error
	Status int
	Fields []string
}

// NewRequestError wraps a provided error with an HTTP status code.
// Handlers use this when a client error needs to be returned with
// its message intact.
func NewRequestError(err error, status int) error {
	return &Error{Err: err, Status: status}
}

func (e *Error) Error() string {
	return e.Err.Error()
}
