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

// Package mounter implements the bind-mount half of the Chroot Harness
// by shelling out to the mount(8)/umount(8) binaries on PATH, matching
// the external-program contract the transaction engine relies on for
// every other privileged operation.
package mounter

import (
	"fmt"
	"strings"

	"github.com/HackerOS-Linux-System/hammer/pkg/sys/runner"
)

const (
	MountBinary  = "mount"
	UmountBinary = "umount"
)

// Runner is the narrow subset of sys.Runner this package depends on.
// Declared locally to avoid an import cycle with the sys package.
type Runner interface {
	Run(command string, args ...string) ([]byte, error)
}

type Mounter struct {
	runner Runner
}

// NewMounter builds a Mounter backed by r. When r is nil the real
// os/exec-backed runner is used, which keeps NewSystem's zero-value
// construction working without requiring callers to pre-build a runner.
func NewMounter(r Runner) *Mounter {
	if r == nil {
		r = runner.NewRunner()
	}
	return &Mounter{runner: r}
}

// Mount bind- or regular-mounts source onto target with the given
// fstype and options, via `mount [-t fstype] [-o opt,opt] source target`.
func (m Mounter) Mount(source string, target string, fstype string, options []string) error {
	args := []string{}
	if fstype != "" {
		args = append(args, "-t", fstype)
	}
	if len(options) > 0 {
		args = append(args, "-o", strings.Join(options, ","))
	}
	args = append(args, source, target)

	out, err := m.runner.Run(MountBinary, args...)
	if err != nil {
		return fmt.Errorf("mounting %s on %s: %w: %s", source, target, err, out)
	}
	return nil
}

// Unmount runs `umount target`.
func (m Mounter) Unmount(target string) error {
	out, err := m.runner.Run(UmountBinary, target)
	if err != nil {
		return fmt.Errorf("unmounting %s: %w: %s", target, err, out)
	}
	return nil
}
