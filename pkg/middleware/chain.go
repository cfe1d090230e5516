package middleware

// Chain composes handler wrappers so the first wrapper is the outermost.
func Chain[T any](wrappers ...func(T) T) func(T) T {
	return func(handler T) T {
		for i := len(wrappers) - 1; i >= 0; i-- {
			handler = wrappers[i](handler)
		}
		return handler
	}
}
