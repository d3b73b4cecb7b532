package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/envreload/internal/ui/output"
	"go.trai.ch/envreload/internal/ui/style"
)

// StatusOptions configuration for the Status method.
type StatusOptions struct {
	ConfigPath string
	// Out receives the report. Nil means stdout.
	Out io.Writer
}

// Status prints whether each root's profile artifacts carry the descriptor timestamp.
func (a *App) Status(_ context.Context, names []string, opts StatusOptions) error {
	roots, err := a.resolveRoots(names, opts.ConfigPath, "")
	if err != nil {
		return err
	}

	w := opts.Out
	if w == nil {
		w = os.Stdout
	}
	out := output.New(w)

	nameWidth := 0
	for _, root := range roots {
		nameWidth = max(nameWidth, lipgloss.Width(root.Name))
	}
	nameStyle := lipgloss.NewStyle().Width(nameWidth)

	for _, root := range roots {
		freshness, err := a.reconciler.Inspect(root)
		if err != nil {
			return err
		}

		icon, color, summary := describe(freshness)
		_, _ = fmt.Fprintf(w, "%s %s  %s  %s\n",
			output.Paint(out, icon, string(color)),
			nameStyle.Render(root.Name),
			output.Paint(out, root.Path, string(style.Slate)),
			summary,
		)
	}
	return nil
}

func describe(f domain.Freshness) (icon string, color lipgloss.Color, summary string) {
	switch {
	case !f.RootExists:
		return style.Cross, style.Red, "missing"
	case !f.DescriptorExists:
		return style.Cross, style.Red, "no " + f.Root.Descriptor
	case len(f.Artifacts) == 0:
		return style.Warning, style.Yellow, "no profile artifacts"
	case f.InSync():
		return style.Check, style.Green, fmt.Sprintf("in sync (%d artifacts)", len(f.Artifacts))
	default:
		return style.Tilde, style.Yellow, fmt.Sprintf("%d of %d artifacts stale", len(f.Stale()), len(f.Artifacts))
	}
}
