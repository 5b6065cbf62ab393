// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENSE file for details.

package cmdtesting

import (
	"bytes"
	"io"

	"github.com/juju/gnuflag"
	gc "gopkg.in/check.v1"

	"github.com/pylaunch/pylaunch/internal/cmd"
)

// InitCommand initializes c with the given args, running flag parsing the
// same way cmd.Main does.
func InitCommand(c cmd.Command, args []string) error {
	f := gnuflag.NewFlagSetWithFlagKnownAs(c.Info().Name, gnuflag.ContinueOnError, "option")
	f.SetOutput(io.Discard)
	c.SetFlags(f)
	if err := f.Parse(true, args); err != nil {
		return err
	}
	return c.Init(f.Args())
}

// Context returns a Context rooted in the given directory, with all output
// captured in buffers and an empty stdin.
func Context(c *gc.C, dir string) *cmd.Context {
	return &cmd.Context{
		Dir:    dir,
		Stdin:  &bytes.Buffer{},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	}
}

// Stdout returns the output written to the context's stdout buffer.
func Stdout(ctx *cmd.Context) string {
	return ctx.Stdout.(*bytes.Buffer).String()
}

// Stderr returns the output written to the context's stderr buffer.
func Stderr(ctx *cmd.Context) string {
	return ctx.Stderr.(*bytes.Buffer).String()
}

// HelpText returns a command's formatted help text.
func HelpText(command cmd.Command, name string) string {
	info := command.Info()
	info.Name = name
	f := gnuflag.NewFlagSetWithFlagKnownAs(info.Name, gnuflag.ContinueOnError, "option")
	f.SetOutput(io.Discard)
	command.SetFlags(f)
	return string(info.Help(f))
}
