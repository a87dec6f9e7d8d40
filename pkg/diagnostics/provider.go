package diagnostics

import (
	"context"
)

// Provider produces the current issue set for a file. Implementations wrap
// concrete linting and type-checking tools and are expected to emit already
// normalized codes and messages.
//
// A provider that cannot diagnose a file returns an error recognized by
// errors.IsType(err, errors.ErrorTypeDiagnosis); the controller treats that
// as zero issues for the file in the current iteration and logs a warning.
type Provider interface {
	Diagnose(ctx context.Context, file string) ([]Issue, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, file string) ([]Issue, error)

func (f ProviderFunc) Diagnose(ctx context.Context, file string) ([]Issue, error) {
	return f(ctx, file)
}
