/*
Copyright © 2022-2025 SUSE LLC
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

package sys

import (
	"context"
	"os/exec"

	"github.com/HackerOS-Linux-System/hammer/pkg/log"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/mounter"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/runner"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/syscall"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
)

// Mounter is the bind-mount contract the Chroot Harness relies on. It
// shells out to mount(8)/umount(8) rather than parsing /proc/mounts,
// since the only mounts this tool ever performs are its own bind
// mounts into a staged deployment.
type Mounter interface {
	Mount(source string, target string, fstype string, options []string) error
	Unmount(target string) error
}

// Runner is the Command Runner contract: every external program this
// tool invokes (btrfs, chroot, update-initramfs, update-grub, mount...)
// goes through it.
type Runner interface {
	Run(command string, args ...string) ([]byte, error)
	RunContext(ctx context.Context, command string, args ...string) ([]byte, error)
	// RunInherit runs command with stdio forwarded to the controlling
	// terminal, for subprocesses the user needs to watch live.
	RunInherit(command string, args ...string) error
}

type Syscall interface {
	Chroot(string) error
	Chdir(string) error
}

type System struct {
	logger  log.Logger
	fs      FS
	mounter Mounter
	runner  Runner
	syscall Syscall
}

type SystemOpts func(a *System) error

func WithFS(fs FS) SystemOpts {
	return func(s *System) error {
		s.fs = fs
		return nil
	}
}

func WithLogger(logger log.Logger) SystemOpts {
	return func(s *System) error {
		s.logger = logger
		return nil
	}
}

func WithSyscall(sc Syscall) SystemOpts {
	return func(s *System) error {
		s.syscall = sc
		return nil
	}
}

func WithMounter(m Mounter) SystemOpts {
	return func(s *System) error {
		s.mounter = m
		return nil
	}
}

func WithRunner(r Runner) SystemOpts {
	return func(s *System) error {
		s.runner = r
		return nil
	}
}

func NewSystem(opts ...SystemOpts) (*System, error) {
	logger := log.New()
	sysObj := &System{
		fs:      vfs.New(),
		logger:  logger,
		syscall: syscall.New(),
		mounter: mounter.NewMounter(nil),
	}

	for _, o := range opts {
		if err := o(sysObj); err != nil {
			return nil, err
		}
	}

	// Defer the runner creation in case the caller set a custom logger.
	if sysObj.runner == nil {
		sysObj.runner = runner.NewRunner(runner.WithLogger(sysObj.logger))
	}

	return sysObj, nil
}

func (s System) FS() FS {
	return s.fs
}

func (s System) Syscall() Syscall {
	return s.syscall
}

func (s System) Mounter() Mounter {
	return s.mounter
}

func (s System) Runner() Runner {
	return s.runner
}

func (s System) Logger() log.Logger {
	return s.logger
}

// CommandExists reports whether command is resolvable on PATH.
func CommandExists(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}
