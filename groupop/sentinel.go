package groupop

import "math"

// Unspecified returns the deterministic-but-arbitrary sentinel spec.md §9
// requires for lane-referential operations (shift, permute) whose target
// lane is out of range: a fixed bit pattern for integers, a quiet NaN for
// floating-point types, and the zero value for anything else (matching the
// "trivially-default-constructible" requirement §9 places on user types).
// This resolves spec.md §9's second open question explicitly, instead of
// conflating "unspecified" with zero-initialization.
func Unspecified[T any]() T {
	var zero T
	switch p := any(&zero).(type) {
	case *int8:
		*p = -1
	case *int16:
		*p = -1
	case *int32:
		*p = -1
	case *int64:
		*p = -1
	case *int:
		*p = -1
	case *uint8:
		*p = 0xFF
	case *uint16:
		*p = 0xFFFF
	case *uint32:
		*p = 0xFFFFFFFF
	case *uint64:
		*p = 0xFFFFFFFFFFFFFFFF
	case *uint:
		*p = ^uint(0)
	case *float32:
		*p = float32(math.NaN())
	case *float64:
		*p = math.NaN()
	}
	return zero
}
