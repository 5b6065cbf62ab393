// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"os"

	"github.com/juju/loggo/v2"

	"github.com/pylaunch/pylaunch/internal/cmd"
)

// loggingConfigEnvKey lets an operator raise log levels without editing the
// shortcut that starts the launcher.
const loggingConfigEnvKey = "PYLAUNCH_LOGGING_CONFIG"

func init() {
	// If the environment key is empty, ConfigureLoggers returns nil and
	// does nothing.
	if err := loggo.ConfigureLoggers(os.Getenv(loggingConfigEnvKey)); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR parsing %s: %s\n\n", loggingConfigEnvKey, err)
	}
}

func main() {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %v\n", err)
		os.Exit(2)
	}
	os.Exit(cmd.Main(newLaunchCommand(), ctx, os.Args[1:]))
}
