package util

// Find returns the first element satisfying pred, in slice order.
func Find[T any](items []T, pred func(T) bool) (T, bool) {
	for _, it := range items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}
