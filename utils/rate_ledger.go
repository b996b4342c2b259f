package utils

import (
	"fmt"
)

// The rate ledger is the arithmetic primitive behind every budget
// decision: a limit (what the parent or root may hand out), the amount
// already allocated to children, and a requested delta. It does no I/O;
// callers load the figures, ask, and persist the result.

// BudgetExceededError is returned when a requested rate does not fit in
// the remaining budget. Available carries the exact remaining amount so
// the caller can tell the user how much is still grantable.
type BudgetExceededError struct {
	Limit     float64
	Requested float64
	Available float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("requested rate %.2f exceeds available budget %.2f (limit %.2f)", e.Requested, e.Available, e.Limit)
}

// BelowChildAllocationError is returned when a node's rate would be
// lowered beneath what it has already delegated to its own children.
type BelowChildAllocationError struct {
	Floor     float64
	Requested float64
}

func (e *BelowChildAllocationError) Error() string {
	return fmt.Sprintf("requested rate %.2f is below the %.2f already allocated to children", e.Requested, e.Floor)
}

// TryAllocate grants requested out of (limit - allocated) and returns
// the new allocated figure. The bound is inclusive: a request equal to
// the remaining budget is accepted.
func TryAllocate(limit, allocated, requested float64) (float64, error) {
	available := limit - allocated
	if requested > available {
		return allocated, &BudgetExceededError{Limit: limit, Requested: requested, Available: available}
	}
	return allocated + requested, nil
}

// TryReallocate changes a previously granted oldAmount to newAmount.
// floor is what the node itself has already handed to its children; the
// new amount may not drop below it. Returns the parent's new allocated
// figure.
func TryReallocate(limit, allocated, oldAmount, newAmount, floor float64) (float64, error) {
	if newAmount < floor {
		return allocated, &BelowChildAllocationError{Floor: floor, Requested: newAmount}
	}
	// The old grant is handed back before checking the new one
	remaining := allocated - oldAmount
	available := limit - remaining
	if newAmount > available {
		return allocated, &BudgetExceededError{Limit: limit, Requested: newAmount, Available: available}
	}
	return remaining + newAmount, nil
}

// Release hands amount back to the ledger on delete. amount is always
// the deleted node's full commissionRate.
func Release(allocated, amount float64) float64 {
	return allocated - amount
}
