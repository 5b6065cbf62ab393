// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package venv models a pre-existing Python virtual environment and the
// environment variable changes its activation implies. Activation is
// expressed as an explicit Environ object applied to a child process's
// environment, rather than mutation of the launcher's own process state.
package venv

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("pylaunch.venv")

// osName is used to pick the on-disk layout of the environment.
// It is patched in tests to cover both layouts on one platform.
var osName = runtime.GOOS

// ConfigFile is the marker file present at the root of every virtual
// environment created by the venv module.
const ConfigFile = "pyvenv.cfg"

// Venv describes a virtual environment rooted at Dir.
type Venv struct {
	// Dir is the root of the virtual environment.
	Dir string
}

// New returns a Venv rooted at the given directory. The directory is not
// inspected until Validate is called.
func New(dir string) *Venv {
	return &Venv{Dir: dir}
}

// BinDir returns the directory holding the environment's executables.
func (v *Venv) BinDir() string {
	if osName == "windows" {
		return filepath.Join(v.Dir, "Scripts")
	}
	return filepath.Join(v.Dir, "bin")
}

// Python returns the path of the environment's interpreter.
func (v *Venv) Python() string {
	name := "python"
	if osName == "windows" {
		name = "python.exe"
	}
	return filepath.Join(v.BinDir(), name)
}

// CheckArgs returns the argv of a command that probes the environment's
// interpreter. Running it and harvesting the exit code stands in for
// sourcing the activation script: a zero exit means the environment is
// usable.
func (v *Venv) CheckArgs() []string {
	return []string{v.Python(), "-c", "import sys; sys.exit(0)"}
}

// Validate checks that Dir holds a plausible virtual environment. A missing
// directory is reported as not found; a directory without the venv marker
// file or an interpreter is reported as not valid.
func (v *Venv) Validate() error {
	info, err := os.Stat(v.Dir)
	if os.IsNotExist(err) {
		return errors.NotFoundf("virtual environment %q", v.Dir)
	} else if err != nil {
		return errors.Trace(err)
	}
	if !info.IsDir() {
		return errors.NotValidf("virtual environment %q (not a directory)", v.Dir)
	}
	if _, err := os.Stat(filepath.Join(v.Dir, ConfigFile)); err != nil {
		return errors.NotValidf("virtual environment %q (missing %s)", v.Dir, ConfigFile)
	}
	if _, err := os.Stat(v.Python()); err != nil {
		return errors.NotValidf("virtual environment %q (no interpreter)", v.Dir)
	}
	logger.Debugf("found virtual environment at %s", v.Dir)
	return nil
}

// Environ returns the activation context for the environment.
func (v *Venv) Environ() *Environ {
	return &Environ{
		venvDir: v.Dir,
		binDir:  v.BinDir(),
	}
}

// Environ holds the environment variable changes that activating a virtual
// environment implies. Apply produces a child process environment; the
// launcher's own environment is never touched.
type Environ struct {
	venvDir string
	binDir  string
	extra   []string
}

// Setenv records an additional variable to set in the child environment.
// Later values for the same key win.
func (e *Environ) Setenv(key, value string) {
	e.extra = append(e.extra, key+"="+value)
}

// Apply returns a copy of base with the activation changes applied:
// VIRTUAL_ENV is set, the environment's bin directory is prepended to PATH,
// PYTHONHOME is removed, and any extra variables are set last.
func (e *Environ) Apply(base []string) []string {
	var out []string
	path := ""
	for _, entry := range base {
		key := entry
		if i := strings.IndexByte(entry, '='); i >= 0 {
			key = entry[:i]
		}
		switch key {
		case "PATH":
			path = entry[len("PATH="):]
		case "VIRTUAL_ENV", "PYTHONHOME":
			// Replaced or dropped below.
		default:
			out = append(out, entry)
		}
	}
	out = append(out, "VIRTUAL_ENV="+e.venvDir)
	if path == "" {
		out = append(out, "PATH="+e.binDir)
	} else {
		out = append(out, "PATH="+e.binDir+string(os.PathListSeparator)+path)
	}
	for _, entry := range e.extra {
		key := entry[:strings.IndexByte(entry, '=')]
		out = removeKey(out, key)
		out = append(out, entry)
	}
	return out
}

func removeKey(env []string, key string) []string {
	prefix := key + "="
	var out []string
	for _, entry := range env {
		if !strings.HasPrefix(entry, prefix) {
			out = append(out, entry)
		}
	}
	return out
}
