package chat

import "errors"

var (
	// ErrStore marks a message aborted because the store failed.
	ErrStore = errors.New("chat: store unavailable")
	// ErrDelivery marks replies that could not be sent.
	ErrDelivery = errors.New("chat: reply delivery failed")
)

// Error ties a failure to its class. errors.Is matches both the class and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Op + ": " + e.Err.Error()
}

// Unwrap exposes both the class sentinel and the cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Code is the err_code reported by the handler summary log.
func (e *Error) Code() string {
	switch e.Kind {
	case ErrStore:
		return "STORE"
	case ErrDelivery:
		return "DELIVERY"
	}
	return "CHAT"
}

func storeErr(op string, err error) error {
	return &Error{Kind: ErrStore, Op: op, Err: err}
}
