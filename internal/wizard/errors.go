package wizard

// ValidationError carries field-scoped messages for a rejected form. The
// fields never reach the upstream backend; validation failures are local.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// ErrInvalidSearch wraps search-form field errors.
func ErrInvalidSearch(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}
