// Package frameworks defines the contract for integrations that expose
// adapters to external agent frameworks. Availability is resolved once at
// construction; operations on an unavailable integration fail fast with a
// framework-kind error.
package frameworks

import (
	"github.com/omnillm/omnillm/llm"
)

// Integration is a bridge between the adapter contract and one external
// framework. Implementations add their own serving surface on top.
type Integration interface {
	// Name returns the stable integration identifier.
	Name() string

	// Available reports whether the integration was enabled at construction.
	Available() bool
}

// ErrUnavailable builds the error every integration returns when invoked
// while disabled.
func ErrUnavailable(name string) error {
	return llm.NewFrameworkError(name, "integration is not available; enable it in the frameworks configuration")
}
