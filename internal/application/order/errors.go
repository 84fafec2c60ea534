package order

import (
	"errors"
	"fmt"

	domain "github.com/shopcore/fulfillment/internal/domain/order"
)

var (
	// ErrInvalidRequest is a caller error: it fails fast, before any
	// collaborator is touched.
	ErrInvalidRequest = errors.New("order: invalid request")

	// ErrServiceDegraded marks a transport-level inventory failure
	// (timeout, unreachable, circuit open). It is never a statement
	// about stock levels.
	ErrServiceDegraded = errors.New("order: inventory service degraded")

	ErrNotFound = domain.ErrNotFound
)

// DegradedMessage is the user-facing apology for the degraded path.
const DegradedMessage = "Ooops! Something went wrong, please order after some time!"

// OutOfStockError is a logical rejection naming the first line, in input
// order, whose requested quantity could not be satisfied.
type OutOfStockError struct {
	SKUCode string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("order: item with SKU %s is not in stock", e.SKUCode)
}

// DebitFailure reports one failed stock debit within an accepted order.
type DebitFailure struct {
	SKUCode string
	Err     error
}

// DebitReport aggregates the stock-debit fan-out outcome. Failures never
// unwind the persisted order; they are a log- and audit-level concern.
type DebitReport struct {
	Attempted int
	Failures  []DebitFailure
}

// AllDegraded reports whether every attempted debit failed at the
// transport level, which downgrades the placement response.
func (r DebitReport) AllDegraded() bool {
	if r.Attempted == 0 || len(r.Failures) < r.Attempted {
		return false
	}
	for _, f := range r.Failures {
		if !errors.Is(f.Err, ErrServiceDegraded) {
			return false
		}
	}
	return true
}
