package result

// Result is either a success carrying a value or a failure carrying an error
// value. Failures here are expected outcomes, not Go errors.
type Result[T, E any] struct {
	value T
	err   E
	ok    bool
}

func Ok[T, E any](value T) Result[T, E] {
	return Result[T, E]{value: value, ok: true}
}

func Fail[T, E any](err E) Result[T, E] {
	return Result[T, E]{err: err}
}

func (r Result[T, E]) IsOk() bool {
	return r.ok
}

// Value returns the success value and whether the result is a success.
func (r Result[T, E]) Value() (T, bool) {
	return r.value, r.ok
}

// Failure returns the failure value and whether the result is a failure.
func (r Result[T, E]) Failure() (E, bool) {
	return r.err, !r.ok
}
