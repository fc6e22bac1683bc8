package groupop

// BinaryOp names an associative reduction/scan operator. Tag is compared
// across arrivals as the op-specific divergence parameter (spec.md §4.3's
// "binary-op tag"); Go function values are not comparable, so the engine
// cross-checks the tag rather than the Apply closure itself.
type BinaryOp[T any] struct {
	Tag      string
	Identity T
	Apply    func(a, b T) T
}

// Numeric is the set of element types the built-in operator constructors
// below support.
type Numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// Plus builds the "+" reduction/scan operator with identity zero.
func Plus[T Numeric]() BinaryOp[T] {
	return BinaryOp[T]{Tag: "plus", Identity: 0, Apply: func(a, b T) T { return a + b }}
}

// Multiplies builds the "*" reduction/scan operator with identity one.
func Multiplies[T Numeric]() BinaryOp[T] {
	return BinaryOp[T]{Tag: "multiplies", Identity: 1, Apply: func(a, b T) T { return a * b }}
}

// Max builds the "max" reduction/scan operator, with the caller-supplied
// identity acting as the type's minimum representable value (e.g.
// math.MinInt32 for int32, -Inf for floats).
func Max[T Numeric](identityMin T) BinaryOp[T] {
	return BinaryOp[T]{Tag: "maximum", Identity: identityMin, Apply: func(a, b T) T {
		if a > b {
			return a
		}
		return b
	}}
}

// Min builds the "min" reduction/scan operator, with the caller-supplied
// identity acting as the type's maximum representable value.
func Min[T Numeric](identityMax T) BinaryOp[T] {
	return BinaryOp[T]{Tag: "minimum", Identity: identityMax, Apply: func(a, b T) T {
		if a < b {
			return a
		}
		return b
	}}
}
