// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package venv

import (
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type venvSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&venvSuite{})

func (s *venvSuite) makeVenv(c *gc.C) *Venv {
	dir := filepath.Join(c.MkDir(), "venv")
	c.Assert(os.MkdirAll(filepath.Join(dir, "bin"), 0755), jc.ErrorIsNil)
	err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte("home = /usr/bin\n"), 0644)
	c.Assert(err, jc.ErrorIsNil)
	err = os.WriteFile(filepath.Join(dir, "bin", "python"), []byte("#!/bin/sh\nexit 0\n"), 0755)
	c.Assert(err, jc.ErrorIsNil)
	return New(dir)
}

func (s *venvSuite) TestLayoutUnix(c *gc.C) {
	s.PatchValue(&osName, "linux")
	v := New("/srv/app/venv")
	c.Check(v.BinDir(), gc.Equals, filepath.Join("/srv/app/venv", "bin"))
	c.Check(v.Python(), gc.Equals, filepath.Join("/srv/app/venv", "bin", "python"))
}

func (s *venvSuite) TestLayoutWindows(c *gc.C) {
	s.PatchValue(&osName, "windows")
	v := New(`C:\app\venv`)
	c.Check(v.BinDir(), gc.Equals, filepath.Join(`C:\app\venv`, "Scripts"))
	c.Check(v.Python(), gc.Equals, filepath.Join(`C:\app\venv`, "Scripts", "python.exe"))
}

func (s *venvSuite) TestCheckArgs(c *gc.C) {
	s.PatchValue(&osName, "linux")
	v := New("/srv/app/venv")
	args := v.CheckArgs()
	c.Assert(args, gc.HasLen, 3)
	c.Check(args[0], gc.Equals, v.Python())
	c.Check(args[1], gc.Equals, "-c")
}

func (s *venvSuite) TestValidateSuccess(c *gc.C) {
	s.PatchValue(&osName, "linux")
	v := s.makeVenv(c)
	c.Assert(v.Validate(), jc.ErrorIsNil)
}

func (s *venvSuite) TestValidateMissing(c *gc.C) {
	s.PatchValue(&osName, "linux")
	v := New(filepath.Join(c.MkDir(), "venv"))
	err := v.Validate()
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
	c.Assert(err, gc.ErrorMatches, `virtual environment ".*" not found`)
}

func (s *venvSuite) TestValidateNotADirectory(c *gc.C) {
	s.PatchValue(&osName, "linux")
	path := filepath.Join(c.MkDir(), "venv")
	c.Assert(os.WriteFile(path, nil, 0644), jc.ErrorIsNil)
	err := New(path).Validate()
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
	c.Assert(err, gc.ErrorMatches, `.*\(not a directory\) not valid`)
}

func (s *venvSuite) TestValidateMissingConfig(c *gc.C) {
	s.PatchValue(&osName, "linux")
	v := s.makeVenv(c)
	c.Assert(os.Remove(filepath.Join(v.Dir, ConfigFile)), jc.ErrorIsNil)
	err := v.Validate()
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
	c.Assert(err, gc.ErrorMatches, `.*\(missing pyvenv.cfg\) not valid`)
}

func (s *venvSuite) TestValidateMissingInterpreter(c *gc.C) {
	s.PatchValue(&osName, "linux")
	v := s.makeVenv(c)
	c.Assert(os.Remove(v.Python()), jc.ErrorIsNil)
	err := v.Validate()
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
	c.Assert(err, gc.ErrorMatches, `.*\(no interpreter\) not valid`)
}

func (s *venvSuite) TestEnvironApply(c *gc.C) {
	s.PatchValue(&osName, "linux")
	v := New("/srv/app/venv")
	sep := string(os.PathListSeparator)

	got := v.Environ().Apply([]string{
		"HOME=/home/op",
		"PATH=/usr/bin" + sep + "/bin",
		"PYTHONHOME=/usr",
		"VIRTUAL_ENV=/somewhere/else",
	})
	c.Assert(got, jc.DeepEquals, []string{
		"HOME=/home/op",
		"VIRTUAL_ENV=/srv/app/venv",
		"PATH=/srv/app/venv/bin" + sep + "/usr/bin" + sep + "/bin",
	})
}

func (s *venvSuite) TestEnvironApplyEmptyBase(c *gc.C) {
	s.PatchValue(&osName, "linux")
	v := New("/srv/app/venv")
	got := v.Environ().Apply(nil)
	c.Assert(got, jc.DeepEquals, []string{
		"VIRTUAL_ENV=/srv/app/venv",
		"PATH=/srv/app/venv/bin",
	})
}

func (s *venvSuite) TestEnvironExtraVariables(c *gc.C) {
	s.PatchValue(&osName, "linux")
	env := New("/srv/app/venv").Environ()
	env.Setenv("HUGGING_FACE_HUB_TOKEN", "hf_123")
	env.Setenv("LANG", "C.UTF-8")

	got := env.Apply([]string{"LANG=en_US.UTF-8", "HOME=/home/op"})
	c.Check(got, jc.DeepEquals, []string{
		"HOME=/home/op",
		"VIRTUAL_ENV=/srv/app/venv",
		"PATH=/srv/app/venv/bin",
		"HUGGING_FACE_HUB_TOKEN=hf_123",
		"LANG=C.UTF-8",
	})
}

func (s *venvSuite) TestEnvironLastSetenvWins(c *gc.C) {
	s.PatchValue(&osName, "linux")
	env := New("/srv/app/venv").Environ()
	env.Setenv("TOKEN", "first")
	env.Setenv("TOKEN", "second")

	got := env.Apply(nil)
	c.Check(got, jc.DeepEquals, []string{
		"VIRTUAL_ENV=/srv/app/venv",
		"PATH=/srv/app/venv/bin",
		"TOKEN=second",
	})
}
