package domain

import "errors"

var (
	ErrNotFound         = errors.New("ranking not found")
	ErrDuplicateDish    = errors.New("dish already ranked for this user and dish type")
	ErrInvalidRank      = errors.New("rank must be a positive integer")
	ErrInvalidScope     = errors.New("scope requires a dish type or restaurant id")
	ErrInvalidStatus    = errors.New("invalid taste status")
	ErrInvalidPayload   = errors.New("invalid event payload")
	ErrUnknownEventType = errors.New("unknown event type")
)

// IsPermanent reports whether err is a domain validation failure that
// redelivery cannot fix.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicateDish) ||
		errors.Is(err, ErrInvalidRank) ||
		errors.Is(err, ErrInvalidScope) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrUnknownEventType)
}
