// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/envreload/internal/core/domain"
)

// Executor defines the interface for running the external environment manager.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the invocation to completion.
	//
	// The invocation's Env is layered over the inherited process environment
	// for this process only; the caller's environment is never modified.
	//
	// A non-zero exit is reported as a *domain.ToolFailure somewhere in the error chain.
	Execute(ctx context.Context, inv *domain.Invocation, stdout, stderr io.Writer) error
}
