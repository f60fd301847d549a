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

// Package sanity runs the checks the transaction engine requires a
// staged deployment to pass before it is ever allowed to become the
// default: a bootable kernel and matching initramfs must be present,
// and whatever fstab the deployment carries must be mountable.
package sanity

import (
	"errors"
	"fmt"

	"github.com/HackerOS-Linux-System/hammer/pkg/chroot"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
)

// ErrSanityFailed wraps every failure this package can report: a
// missing kernel or initramfs, or a broken fstab. It causes the
// enclosing transaction to abort and mark the staged deployment broken.
var ErrSanityFailed = errors.New("sanity check failed")

// VmlinuzPath returns the expected kernel image path for version
// inside deploymentPath.
func VmlinuzPath(deploymentPath, version string) string {
	return deploymentPath + "/boot/vmlinuz-" + version
}

// InitrdPath returns the expected initramfs path for version inside
// deploymentPath.
func InitrdPath(deploymentPath, version string) string {
	return deploymentPath + "/boot/initrd.img-" + version
}

// CheckKernel asserts /boot/vmlinuz-<version> exists inside deploymentPath.
func CheckKernel(s *sys.System, deploymentPath, version string) error {
	path := VmlinuzPath(deploymentPath, version)
	ok, err := vfs.Exists(s.FS(), path)
	if err != nil {
		return fmt.Errorf("%w: checking kernel %s: %s", ErrSanityFailed, path, err)
	}
	if !ok {
		return fmt.Errorf("%w: no kernel image found at %s", ErrSanityFailed, path)
	}
	return nil
}

// CheckInitramfs asserts /boot/initrd.img-<version> exists inside
// deploymentPath.
func CheckInitramfs(s *sys.System, deploymentPath, version string) error {
	path := InitrdPath(deploymentPath, version)
	ok, err := vfs.Exists(s.FS(), path)
	if err != nil {
		return fmt.Errorf("%w: checking initramfs %s: %s", ErrSanityFailed, path, err)
	}
	if !ok {
		return fmt.Errorf("%w: no initramfs found at %s", ErrSanityFailed, path)
	}
	return nil
}

// CheckMounts runs `mount -f -a` (fake, all) inside a chroot rooted at
// deploymentPath, exercising fstab without actually mounting anything,
// to catch malformed or unresolvable fstab entries before the
// deployment is ever booted.
func CheckMounts(s *sys.System, deploymentPath string) error {
	err := chroot.ChrootedCallback(s, deploymentPath, nil, func() error {
		_, runErr := s.Runner().Run("mount", "-f", "-a")
		return runErr
	})
	if err != nil {
		return fmt.Errorf("%w: validating fstab: %s", ErrSanityFailed, err)
	}
	return nil
}

// Check runs every sanity check a deployment must pass, given the
// kernel version the engine has already detected for it, before it
// can be published as the new default.
func Check(s *sys.System, deploymentPath, kernelVersion string) error {
	if err := CheckKernel(s, deploymentPath, kernelVersion); err != nil {
		return err
	}
	if err := CheckInitramfs(s, deploymentPath, kernelVersion); err != nil {
		return err
	}
	return CheckMounts(s, deploymentPath)
}
