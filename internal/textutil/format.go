package textutil

// Ternary returns a when cond holds and b otherwise.
func Ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// YesNo renders a flag for table output.
func YesNo(value bool) string {
	return Ternary(value, "yes", "no")
}
