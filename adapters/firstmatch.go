package adapters

// FirstMatch calls attempts in order and returns the result of the first one
// that reports success. Attempts that fail are skipped silently.
func FirstMatch[T any](attempts ...func() (T, bool)) (T, bool) {
	for _, try := range attempts {
		if v, ok := try(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
