package imagegen

import "fmt"

// Kind classifies a failed generation attempt for the caller and for the
// HTTP layer's response body.
type Kind string

const (
	KindRateLimited        Kind = "rate_limited"
	KindServiceUnavailable Kind = "service_unavailable"
	KindInvalidPrompt      Kind = "invalid_prompt"
)

// Error is a failed image generation. It wraps the underlying service
// error so callers can still inspect it with errors.As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("image generation failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
