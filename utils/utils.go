// Package utils provides small shared helpers used across the application.
package utils

// ToPtr returns a pointer to v, useful for optional struct fields.
func ToPtr[T any](v T) *T {
	return &v
}
