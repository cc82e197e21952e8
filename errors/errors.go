package errors

import "fmt"

var (
	ErrWorkerPanic             = fmt.Errorf("worker panic")
	ErrAlreadyAssociated       = fmt.Errorf("session already associated with another identity")
	ErrMalformedMessagePayload = fmt.Errorf("malformed message payload")
	ErrStaleDeliveryTarget     = fmt.Errorf("delivery target is no longer live")
	ErrUnknownSession          = fmt.Errorf("unknown session")
	ErrUnknownEvent            = fmt.Errorf("unknown event")
	ErrInvalidPayload          = fmt.Errorf("invalid event payload")
	ErrSinkFull                = fmt.Errorf("sink buffer full")
	ErrSinkClosed              = fmt.Errorf("sink closed")
	ErrInvalidConfig           = fmt.Errorf("invalid configuration")
)
