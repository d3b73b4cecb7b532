// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/envreload/internal/adapters/config"
	_ "go.trai.ch/envreload/internal/adapters/logger"
	_ "go.trai.ch/envreload/internal/adapters/shell"
	_ "go.trai.ch/envreload/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/envreload/internal/app"
	_ "go.trai.ch/envreload/internal/engine/reconciler"
)
