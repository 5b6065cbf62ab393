// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"

	"github.com/pylaunch/pylaunch/internal/cmd"
	"github.com/pylaunch/pylaunch/internal/config"
	"github.com/pylaunch/pylaunch/internal/launcher"
)

var logger = loggo.GetLogger("pylaunch")

// Title is the banner printed before anything else happens.
const Title = "Local Transcription Server"

const launchDoc = `
pylaunch starts the Python server that lives next to the launcher, inside
the virtual environment that lives there too. The server's console output
streams to this terminal, and the window stays open until a key is pressed
after the server stops, so error output remains readable.

An optional pylaunch.yaml next to the launcher can change the virtual
environment directory, the entry point, its arguments, and extra
environment variables. Variables from an optional .env file are passed to
the server as well.
`

type launchCommand struct {
	cmd.CommandBase

	dir           string
	venvDir       string
	entrypoint    string
	noPause       bool
	verbose       bool
	loggingConfig string

	args []string
}

func newLaunchCommand() cmd.Command {
	return &launchCommand{}
}

// Info implements cmd.Command.
func (c *launchCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "pylaunch",
		Args:    "[server args ...]",
		Purpose: "start the local server inside its virtual environment",
		Doc:     launchDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *launchCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.dir, "dir", "", "run from the given directory instead of the launcher's own")
	f.StringVar(&c.venvDir, "venv", "", "override the virtual environment directory")
	f.StringVar(&c.entrypoint, "entrypoint", "", "override the server entry point")
	f.BoolVar(&c.noPause, "no-pause", false, "do not wait for a key press before exiting")
	f.BoolVar(&c.verbose, "verbose", false, "show launcher debug output")
	f.StringVar(&c.loggingConfig, "logging-config", "", "specify log levels for modules")
}

// Init implements cmd.Command. Positional arguments are handed to the
// server entry point untouched.
func (c *launchCommand) Init(args []string) error {
	c.args = args
	return nil
}

// Run implements cmd.Command.
func (c *launchCommand) Run(ctx *cmd.Context) error {
	if err := c.configureLogging(); err != nil {
		return errors.Trace(err)
	}
	ctx.Infof(Title)

	base := c.dir
	if base == "" {
		var err error
		base, err = launcher.SelfDir()
		if err != nil {
			return errors.Annotate(err, "locating launcher directory")
		}
	} else {
		base = ctx.AbsPath(base)
	}
	logger.Debugf("launcher directory: %s", base)

	cfg, err := config.Read(base)
	if err != nil {
		return errors.Trace(err)
	}
	if c.venvDir != "" {
		cfg.Venv = c.venvDir
	}
	if c.entrypoint != "" {
		cfg.Entrypoint = c.entrypoint
	}

	l := &launcher.Launcher{
		Base:     base,
		VenvDir:  cfg.Venv,
		Entry:    cfg.Entrypoint,
		Args:     append(cfg.Args, c.args...),
		ExtraEnv: cfg.Env,
		NoPause:  c.noPause,
	}
	return l.Run(ctx)
}

func (c *launchCommand) configureLogging() error {
	spec := c.loggingConfig
	if spec == "" && c.verbose {
		spec = "pylaunch=DEBUG"
	}
	if spec == "" {
		return nil
	}
	return errors.Annotate(loggo.ConfigureLoggers(spec), "configuring logging")
}
