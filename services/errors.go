package services

import (
	"errors"
	"fmt"
)

// Error taxonomy of the allocation engine. Every rejection is detected
// before any write and carries enough context for the caller to
// self-correct; controllers map these onto HTTP statuses.
var (
	ErrSystemExists           = errors.New("commission system already exists for this manufacturer")
	ErrSystemNotFound         = errors.New("commission system not found")
	ErrSystemArchived         = errors.New("commission system is archived")
	ErrChannelNotFound        = errors.New("channel not found")
	ErrParentNotFound         = errors.New("parent channel not found")
	ErrForbidden              = errors.New("not allowed to modify this channel")
	ErrCrossSystemParent      = errors.New("parent channel belongs to a different commission system")
	ErrConcurrentModification = errors.New("commission system was modified concurrently, please retry")

	// ErrRevisionConflict is returned by stores when a conditional write
	// misses its expected revision. The engine retries; it never escapes
	// to callers directly.
	ErrRevisionConflict = errors.New("revision conflict")
)

// HasChildrenError blocks deletion of a channel that still has
// children; only leaves may be removed.
type HasChildrenError struct {
	Count int64
}

func (e *HasChildrenError) Error() string {
	return fmt.Sprintf("channel still has %d child channel(s)", e.Count)
}

// InvariantViolationError is returned when a system update would leave
// factoryRetainRate + allocatedRate above totalMarginRate.
type InvariantViolationError struct {
	TotalMarginRate   float64
	FactoryRetainRate float64
	AllocatedRate     float64
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("factory retain %.2f plus allocated %.2f exceeds total margin %.2f",
		e.FactoryRetainRate, e.AllocatedRate, e.TotalMarginRate)
}
