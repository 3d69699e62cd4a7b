package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrInvalidRequest    = errors.New("invalid_request")
	ErrInvalidRange      = errors.New("invalid_range")
	ErrThrottleExceeded  = errors.New("throttle_exceeded")
	ErrLimitExceeded     = errors.New("limit_exceeded")
	ErrNotFound          = errors.New("booking_not_found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrRateLimited       = errors.New("rate_limited")
)

type LimitWindow string

const (
	LimitWindowDaily  LimitWindow = "daily"
	LimitWindowWeekly LimitWindow = "weekly"
)

// LimitError explains which usage cap rejected a submission.
type LimitError struct {
	Window    LimitWindow
	Limit     float64
	Used      float64
	Requested float64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("exceeds %s limit of %s hours", e.Window, strconv.FormatFloat(e.Limit, 'f', -1, 64))
}

func (e *LimitError) Unwrap() error { return ErrLimitExceeded }

// LimitDecision is the enforcer verdict. Reason is empty when allowed.
type LimitDecision struct {
	Allowed bool
	Reason  *LimitError
}

func Allowed() LimitDecision {
	return LimitDecision{Allowed: true}
}

func Denied(reason *LimitError) LimitDecision {
	return LimitDecision{Reason: reason}
}
