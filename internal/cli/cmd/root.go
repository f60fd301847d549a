/*
Copyright © 2025 SUSE LLC
SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cmd wires up the urfave/cli commands hammer exposes and the
// setup/teardown run around every one of them: system construction,
// log level and log target selection, and a root check shared by
// the commands that touch the deployment tree.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/HackerOS-Linux-System/hammer/pkg/log"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
)

const Usage = "Atomic btrfs-backed deployment manager for immutable systems"

// DefaultLogPath is where hammer logs when --log-file is not given.
const DefaultLogPath = "/usr/lib/HackerOS/hammer/logs/hammer-core.log"

var logFile *os.File

func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Set logging at debug level",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Save logs to file, accepts path to file or stdout/stderr",
		},
		&cli.StringFlag{
			Name:  "cmdline",
			Usage: "Extra kernel command line arguments baked into new bootloader menu entries",
		},
	}
}

func Setup(ctx *cli.Context) error {
	s, err := sys.NewSystem()
	if err != nil {
		return err
	}

	if ctx.Bool("debug") {
		s.Logger().SetLevel(log.DebugLevel())
	}

	if err = SetLoggerTarget(s, ctx); err != nil {
		return err
	}

	if ctx.App.Metadata == nil {
		ctx.App.Metadata = map[string]any{}
	}
	ctx.App.Metadata["system"] = s
	return nil
}

func Teardown(_ *cli.Context) error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

func SetLoggerTarget(s *sys.System, ctx *cli.Context) error {
	logPath := ctx.String("log-file")
	if logPath == "" {
		logPath = DefaultLogPath
	}
	switch logPath {
	case "-", "stdout":
		s.Logger().SetOutput(os.Stdout)
	case "stderr":
		s.Logger().SetOutput(os.Stderr)
	default:
		if err := vfs.MkdirAll(s.FS(), filepath.Dir(logPath), vfs.DirPerm); err != nil {
			return fmt.Errorf("preparing log directory for '%s': %w", logPath, err)
		}
		var err error
		logFile, err = s.FS().OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, vfs.FilePerm)
		if err != nil {
			return fmt.Errorf("opening log file '%s': %w", logPath, err)
		}
		s.Logger().SetOutput(logFile)
	}
	return nil
}

// SystemFrom extracts the *sys.System stashed by Setup, failing loudly
// if a command somehow runs without going through it.
func SystemFrom(ctx *cli.Context) (*sys.System, error) {
	if ctx.App.Metadata == nil || ctx.App.Metadata["system"] == nil {
		return nil, fmt.Errorf("hammer was not set up correctly: no system in context")
	}
	return ctx.App.Metadata["system"].(*sys.System), nil
}

// RequireRoot fails fast when hammer is not running as root. The
// mutating commands need root to create btrfs subvolumes and chroot;
// the read-only status and history commands call it too.
func RequireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command must be run as root")
	}
	return nil
}
