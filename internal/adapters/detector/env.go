// Package detector selects how the rebuild tool is attached to the terminal.
package detector

import (
	"os"

	"golang.org/x/term"
)

// ExecMode represents how the rebuild tool's output is connected.
type ExecMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto ExecMode = iota
	// ModePTY runs the tool in a pseudo-terminal so it keeps its colors and progress output.
	ModePTY
	// ModePipes runs the tool with plain pipes.
	ModePipes
)

// String returns the flag spelling of the mode.
func (m ExecMode) String() string {
	switch m {
	case ModePTY:
		return "pty"
	case ModePipes:
		return "pipe"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the recommended mode based on the environment.
// It checks if stdout is a TTY and if CI environment variables are set.
func DetectEnvironment() ExecMode {
	return detect(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv("CI"))
}

func detect(isTTY bool, ci string) ExecMode {
	isCI := ci == "true" || ci == "1"
	if !isTTY || isCI {
		return ModePipes
	}
	return ModePTY
}

// ResolveMode applies the user override flag to auto-detection.
// userFlag should be one of: "auto", "pty", "pipe", or empty.
func ResolveMode(autoDetected ExecMode, userFlag string) ExecMode {
	switch userFlag {
	case "pty":
		return ModePTY
	case "pipe", "pipes":
		return ModePipes
	default:
		return autoDetected
	}
}
