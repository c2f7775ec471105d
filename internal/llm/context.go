package llm

import "context"

type purposeKey struct{}

// Purposes used by callers in this module.
const (
	PurposeCourseOutline = "course-outline"
	PurposeUnknown       = "unknown"
)

// WithPurpose labels LLM calls made with ctx for the request log.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or PurposeUnknown.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return PurposeUnknown
}
