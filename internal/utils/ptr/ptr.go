// Package ptr provides pointer constructors for optional wire fields.
// The remote API distinguishes "absent" from "false", so boolean fields
// travel as pointers.
package ptr

// To creates a pointer to the given value.
func To[T any](v T) *T {
	return &v
}

// Bool creates a pointer to the given bool value.
func Bool(b bool) *bool {
	return &b
}
