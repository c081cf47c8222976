package util

// Ptr returns a pointer to v. Useful for optional fields built from literals.
func Ptr[T any](v T) *T {
	return &v
}
