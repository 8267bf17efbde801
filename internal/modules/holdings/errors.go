package holdings

import "errors"

// Structural errors are surfaced to the mutation caller and never
// partially apply. Quote errors are recovered per ticker with fallback
// values and never abort a batch.
var (
	// ErrDuplicateHolding is returned by Add when the ticker is already
	// held. The contract is one position per ticker.
	ErrDuplicateHolding = errors.New("holding with this ticker already exists")

	// ErrHoldingNotFound is returned when no holding has the given identifier
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrInvalidQuantity is returned for a negative or non-integer quantity
	ErrInvalidQuantity = errors.New("quantity must be a non-negative integer")

	// ErrQuoteUnavailable marks a per-ticker quote failure; the holding
	// degrades to fallback values instead of failing the operation.
	ErrQuoteUnavailable = errors.New("quote unavailable")
)
