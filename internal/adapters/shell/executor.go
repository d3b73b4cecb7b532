// Package shell runs the external environment manager as a child process.
package shell

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/creack/pty"
	"go.trai.ch/envreload/internal/adapters/detector"
	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/envreload/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	exitNotFound      = 127
	exitNotExecutable = 126
)

// Executor implements ports.Executor using os/exec and pty.
type Executor struct {
	logger ports.Logger

	mu   sync.RWMutex
	mode detector.ExecMode
}

// NewExecutor creates a new Executor that detects its exec mode on each run.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
		mode:   detector.ModeAuto,
	}
}

// SetMode overrides how the child is attached to the terminal.
func (e *Executor) SetMode(mode detector.ExecMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

func (e *Executor) resolvedMode() detector.ExecMode {
	e.mu.RLock()
	mode := e.mode
	e.mu.RUnlock()

	if mode == detector.ModeAuto {
		return detector.DetectEnvironment()
	}
	return mode
}

// Execute runs the invocation and waits for it to complete.
// The child sees os.Environ() overlaid with inv.Env; the parent environment is untouched.
func (e *Executor) Execute(ctx context.Context, inv *domain.Invocation, stdout, stderr io.Writer) error {
	if len(inv.Command) == 0 {
		return zerr.Wrap(domain.ErrEmptyCommand, "cannot run rebuild")
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	name := inv.Command[0]
	cmdEnv := resolveEnvironment(os.Environ(), inv.Env)

	// Resolve the executable against the child's PATH, not the parent's.
	executable := name
	if !filepath.IsAbs(name) && !strings.ContainsRune(name, filepath.Separator) {
		lp, err := lookPath(name, cmdEnv)
		if err != nil {
			return &domain.ToolFailure{Command: name, Code: exitNotFound, Err: err}
		}
		executable = lp
	}

	newCmd := func() *exec.Cmd {
		cmd := exec.CommandContext(ctx, executable, inv.Command[1:]...) //nolint:gosec // user provided command
		cmd.Args[0] = name
		cmd.Dir = inv.Dir
		cmd.Env = cmdEnv
		return cmd
	}

	var err error
	if e.resolvedMode() == detector.ModePTY {
		err = e.runPTY(newCmd, stdout, stderr)
	} else {
		err = runPipes(newCmd(), stdout, stderr)
	}
	return toolError(ctx, name, err)
}

// runPTY runs the command in a pseudo-terminal, falling back to pipes when none can be allocated.
func (e *Executor) runPTY(newCmd func() *exec.Cmd, stdout, stderr io.Writer) error {
	cmd := newCmd()
	ptmx, err := pty.Start(cmd)
	if err != nil {
		if isStartError(err) {
			return err
		}
		e.logger.Warn("cannot allocate a terminal, running without one: " + err.Error())
		return runPipes(newCmd(), stdout, stderr)
	}
	_ = pty.InheritSize(os.Stdin, ptmx)

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		// The pty merges both streams.
		_, _ = io.Copy(stdout, ptmx)
	}()

	err = cmd.Wait()
	<-ioDone
	_ = ptmx.Close()
	return err
}

func runPipes(cmd *exec.Cmd, stdout, stderr io.Writer) error {
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// isStartError reports whether err means the process itself could not be started.
func isStartError(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}

// toolError converts a process error into a *domain.ToolFailure carrying the exit status.
func toolError(ctx context.Context, name string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zerr.With(zerr.Wrap(ctxErr, "rebuild interrupted"), "command", name)
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		if code < 0 {
			// Terminated by a signal.
			code = 1
		}
		return &domain.ToolFailure{Command: name, Code: code, Err: err}
	case errors.Is(err, fs.ErrNotExist):
		return &domain.ToolFailure{Command: name, Code: exitNotFound, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &domain.ToolFailure{Command: name, Code: exitNotExecutable, Err: err}
	default:
		return zerr.With(zerr.Wrap(err, "failed to start rebuild"), "command", name)
	}
}

// resolveEnvironment layers the invocation variables over the inherited environment.
func resolveEnvironment(sysEnv []string, invEnv map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(invEnv))
	order := make([]string, 0, len(sysEnv)+len(invEnv))

	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, seen := envMap[k]; !seen {
			order = append(order, k)
		}
		envMap[k] = v
	}

	for k, v := range invEnv {
		if _, seen := envMap[k]; !seen {
			order = append(order, k)
		}
		envMap[k] = v
	}

	result := make([]string, 0, len(order))
	for _, k := range order {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
		}
	}

	if path == "" {
		return "", zerr.With(zerr.Wrap(exec.ErrNotFound, "PATH is empty"), "command", file)
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", zerr.With(zerr.Wrap(exec.ErrNotFound, "executable not found in PATH"), "command", file)
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
