package similarity

import "errors"

var (
	// ErrWeightSpec is returned when scalar types and scalar weights
	// disagree: one list is empty while the other is not.
	ErrWeightSpec = errors.New("scalar types and weights must be given together")

	// ErrWeightSum is returned when the provided weights do not sum to 1
	// within the configured tolerance.
	ErrWeightSum = errors.New("scalar weights must sum to 1")

	// ErrInvariant is returned when a constructed matrix violates a
	// diagonal invariant: distance diagonal must be 0 after normalization,
	// similarity diagonal must be 1 after the kernel.
	ErrInvariant = errors.New("matrix invariant violation")
)
