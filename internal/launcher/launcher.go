// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package launcher implements the supervision sequence for a venv-hosted
// Python server: resolve the launcher's own directory, activate the virtual
// environment, run the server in the foreground, and hold the console open
// until the operator acknowledges the outcome.
package launcher

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/kballard/go-shellquote"
	"github.com/mattn/go-isatty"

	"github.com/pylaunch/pylaunch/internal/cmd"
	"github.com/pylaunch/pylaunch/internal/venv"
)

var logger = loggo.GetLogger("pylaunch.launcher")

// Console text shown to the operator. These strings are part of the
// launcher's contract and are printed verbatim.
const (
	MsgActivating       = "Activating virtual environment..."
	MsgActivationFailed = "ERROR: could not activate the virtual environment."
	MsgActivationHint   = `Make sure the %q folder exists and is set up correctly.`
	MsgStarting         = "Starting server..."
	MsgStopped          = "The server has stopped or encountered an error."
	MsgPressAnyKey      = "Press any key to exit..."
)

// Patch points for tests.
var (
	osExecutable = os.Executable
	osChdir      = os.Chdir
)

// SelfDir returns the directory holding the running executable, resolving
// symlinks, so that the launcher behaves the same no matter where it is
// invoked from.
func SelfDir() (string, error) {
	exe, err := osExecutable()
	if err != nil {
		return "", errors.Trace(err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", errors.Trace(err)
	}
	return filepath.Dir(resolved), nil
}

// Launcher runs a server entry point inside a virtual environment. All
// fields except Base and VenvDir may be left zero valued.
type Launcher struct {
	// Base is the directory holding the virtual environment and the entry
	// point. The process working directory is changed to Base before
	// anything else happens.
	Base string

	// VenvDir is the virtual environment directory, relative to Base.
	VenvDir string

	// Entry is the server entry point, relative to Base.
	Entry string

	// Args are passed to the entry point after its file name.
	Args []string

	// ExtraEnv holds additional variables for the server's environment.
	ExtraEnv map[string]string

	// NoPause suppresses the acknowledgment prompts, for scripted use.
	NoPause bool

	// Ack, when set, replaces the default key-press wait. It must block
	// until the operator has acknowledged the preceding output.
	Ack func(ctx *cmd.Context) error
}

// Run executes the launch sequence. It returns nil after the termination
// report has been acknowledged, whatever the server's exit status was. An
// activation failure is returned as a cmd.RcPassthroughError carrying the
// activation step's exit code, after its own acknowledgment.
func (l *Launcher) Run(ctx *cmd.Context) error {
	if err := osChdir(l.Base); err != nil {
		return errors.Annotate(err, "entering launcher directory")
	}
	ctx.Dir = l.Base

	ctx.Infof(MsgActivating)
	v := venv.New(filepath.Join(l.Base, l.VenvDir))
	if err := v.Validate(); err != nil {
		return l.activationFailed(ctx, err, 1)
	}
	env := v.Environ()
	for _, key := range sortedKeys(l.ExtraEnv) {
		env.Setenv(key, l.ExtraEnv[key])
	}
	childEnv := env.Apply(ctx.Environ())

	check := v.CheckArgs()
	logger.Debugf("checking interpreter: %s", shellquote.Join(check...))
	if err := l.runChild(ctx, childEnv, check, false); err != nil {
		return l.activationFailed(ctx, err, exitStatus(err))
	}

	argv := append([]string{v.Python(), l.Entry}, l.Args...)
	ctx.Infof(MsgStarting)
	logger.Infof("running %s", shellquote.Join(argv...))
	if err := l.runChild(ctx, childEnv, argv, true); err != nil {
		logger.Debugf("server process ended: %v", err)
	}

	ctx.Infof("")
	ctx.Infof(MsgStopped)
	return errors.Trace(l.pause(ctx))
}

// activationFailed reports the failure to the operator, waits for
// acknowledgment and arranges for the process to exit with code.
func (l *Launcher) activationFailed(ctx *cmd.Context, cause error, code int) error {
	logger.Errorf("activation failed: %v", cause)
	ctx.Infof("")
	ctx.Infof(MsgActivationFailed)
	ctx.Infof(MsgActivationHint, l.VenvDir)
	if err := l.pause(ctx); err != nil {
		return errors.Trace(err)
	}
	if code <= 0 {
		code = 1
	}
	return cmd.NewRcPassthroughError(code)
}

// runChild starts argv as a child process and blocks until it terminates.
// The server runs interactively, with the operator's console wired through;
// the activation check only gets the error stream.
func (l *Launcher) runChild(ctx *cmd.Context, env []string, argv []string, interactive bool) error {
	child := exec.Command(argv[0], argv[1:]...)
	child.Dir = l.Base
	child.Env = env
	child.Stderr = ctx.Stderr
	if interactive {
		child.Stdin = ctx.Stdin
		child.Stdout = ctx.Stdout
	}
	return child.Run()
}

// pause blocks until the operator acknowledges the output above it, unless
// NoPause is set. An exhausted stdin counts as acknowledgment: there is
// nobody left to read the console.
func (l *Launcher) pause(ctx *cmd.Context) error {
	if l.NoPause {
		return nil
	}
	if l.Ack != nil {
		return l.Ack(ctx)
	}
	if f, ok := ctx.Stdin.(*os.File); ok && !isatty.IsTerminal(f.Fd()) {
		logger.Debugf("stdin is not a terminal; waiting for input before closing")
	}
	fmt.Fprintln(ctx.Stdout, MsgPressAnyKey)
	buf := make([]byte, 1)
	if _, err := ctx.Stdin.Read(buf); err != nil && err != io.EOF {
		return errors.Trace(err)
	}
	return nil
}

// exitStatus extracts a child process exit code from an error returned by
// exec.Cmd.Run. Errors that do not carry one (the process never ran, or was
// killed by a signal) come back as 1.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic child environment ordering.
	sort.Strings(keys)
	return keys
}
