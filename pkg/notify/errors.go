package notify

import "errors"

var (
	// ErrInvalidConfig is returned when the relay URL, key or sender is missing
	ErrInvalidConfig = errors.New("invalid email relay config")

	// ErrInvalidMessage is returned before sending a message without recipient or subject
	ErrInvalidMessage = errors.New("invalid email message")

	// ErrRejected is returned when the relay refuses the message (4xx). Retrying will not help.
	ErrRejected = errors.New("email rejected by relay")

	// ErrUnavailable is returned on network errors and 5xx responses
	ErrUnavailable = errors.New("email relay unavailable")

	// ErrCircuitOpen is returned while the breaker short-circuits calls
	ErrCircuitOpen = errors.New("email relay circuit open")
)
