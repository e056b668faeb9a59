package llm

import "context"

// Usage is the provider cost of one or more calls.
type Usage struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
}

// Add returns the sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		Calls:            u.Calls + other.Calls,
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
	}
}

// UsageRecorder receives usage reports for calls made under a context.
type UsageRecorder interface {
	RecordUsage(u Usage)
}

type usageKey struct{}

// WithUsageRecorder returns a context whose provider calls report to r.
func WithUsageRecorder(ctx context.Context, r UsageRecorder) context.Context {
	return context.WithValue(ctx, usageKey{}, r)
}

// RecordUsage reports u to the recorder attached to ctx, if any.
func RecordUsage(ctx context.Context, u Usage) {
	if r, ok := ctx.Value(usageKey{}).(UsageRecorder); ok && r != nil {
		r.RecordUsage(u)
	}
}
