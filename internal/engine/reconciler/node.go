package reconciler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/envreload/internal/adapters/logger" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/envreload/internal/adapters/shell"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/envreload/internal/core/ports"
)

// NodeID is the unique identifier for the reconciler Graft node.
const NodeID graft.ID = "engine.reconciler"

func init() {
	graft.Register(graft.Node[*Reconciler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Reconciler, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(executor, log), nil
		},
	})
}
