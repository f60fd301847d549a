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

// Package pkgmanager drives apt/dpkg inside a staged deployment's
// chroot: installing and removing packages, refreshing the initramfs
// and bootloader config afterward, and deriving the two identities the
// transaction engine records for every deployment - the newest kernel
// version staged, and a content hash of the installed package set.
package pkgmanager

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/HackerOS-Linux-System/hammer/pkg/chroot"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
)

// ErrAlreadyInstalled is returned by Install when the probe finds the
// package already present in the staged deployment.
var ErrAlreadyInstalled = errors.New("package is already installed")

// ErrNotInstalled is returned by Remove when the probe finds the
// package absent from the staged deployment.
var ErrNotInstalled = errors.New("package is not installed")

// ErrChrootCommandFailed wraps any non-zero exit from a package
// manager or trailer command run inside the chroot; the error's
// message carries the captured stderr verbatim.
var ErrChrootCommandFailed = errors.New("chroot command failed")

// packageNamePattern is the whitelist a package argument must satisfy
// before it is ever interpolated into a shell command line: letters,
// digits, and the handful of punctuation characters valid in a Debian
// package name.
var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9+.-]+$`)

// ValidatePackageName rejects any name that is not a plausible Debian
// package name, closing the shell-injection path a name passed
// straight to "apt install" would otherwise open.
func ValidatePackageName(name string) error {
	if name == "" || !packageNamePattern.MatchString(name) {
		return fmt.Errorf("invalid package name %q: must match %s", name, packageNamePattern.String())
	}
	return nil
}

// packagesListPath is where the trailer command sequence dumps `dpkg
// -l` for SystemVersion to hash, cleaned up immediately afterward so
// two deployments with the same installed packages produce byte-
// identical subvolumes.
const packagesListPath = "/tmp/packages.list"

// trailer is the command sequence every mutating operation runs after
// its package-manager step: snapshot the installed package list,
// refresh the initramfs for every kernel present, and regenerate the
// bootloader's own configuration.
const trailer = "dpkg -l > " + packagesListPath + " && update-initramfs -u -k all && update-grub"

func runShell(s *sys.System, deploymentPath, script string) error {
	var runErr error
	err := chroot.ChrootedCallback(s, deploymentPath, nil, func() error {
		out, err := s.Runner().Run("/bin/sh", "-c", script)
		if err != nil {
			runErr = fmt.Errorf("%w: %s: %s", ErrChrootCommandFailed, err, strings.TrimSpace(string(out)))
		}
		return runErr
	})
	if err != nil {
		return err
	}
	return runErr
}

// IsInstalled probes the staged deployment for pkg via `dpkg -s`.
func IsInstalled(s *sys.System, deploymentPath, pkg string) (bool, error) {
	installed := false
	err := chroot.ChrootedCallback(s, deploymentPath, nil, func() error {
		_, runErr := s.Runner().Run("dpkg", "-s", pkg)
		installed = runErr == nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("probing package %s: %w", pkg, err)
	}
	return installed, nil
}

// Install runs the fail-if-present probe then the install + trailer
// command sequence inside the staged deployment's chroot.
func Install(s *sys.System, deploymentPath, pkg string) error {
	if err := ValidatePackageName(pkg); err != nil {
		return err
	}
	installed, err := IsInstalled(s, deploymentPath, pkg)
	if err != nil {
		return err
	}
	if installed {
		return fmt.Errorf("%w: Package %s is already installed in the system", ErrAlreadyInstalled, pkg)
	}
	script := fmt.Sprintf("apt update && apt install -y %s && apt autoremove -y && %s", pkg, trailer)
	return runShell(s, deploymentPath, script)
}

// Remove runs the fail-if-absent probe then the removal + trailer
// command sequence inside the staged deployment's chroot.
func Remove(s *sys.System, deploymentPath, pkg string) error {
	if err := ValidatePackageName(pkg); err != nil {
		return err
	}
	installed, err := IsInstalled(s, deploymentPath, pkg)
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("%w: Package %s is not installed in the system", ErrNotInstalled, pkg)
	}
	script := fmt.Sprintf("apt remove -y %s && apt autoremove -y && %s", pkg, trailer)
	return runShell(s, deploymentPath, script)
}

// Update runs a full system upgrade plus trailer inside the staged
// deployment's chroot.
func Update(s *sys.System, deploymentPath string) error {
	script := fmt.Sprintf(`apt update && apt upgrade -y -o Dpkg::Options::="--force-confold" && apt autoremove -y && %s`, trailer)
	return runShell(s, deploymentPath, script)
}

// Deploy runs only the trailer command sequence, for a rebuild-of-
// current deployment that doesn't change the package set.
func Deploy(s *sys.System, deploymentPath string) error {
	return runShell(s, deploymentPath, trailer)
}

var linuxImagePattern = regexp.MustCompile(`^ii\s+linux-image-(\S+)\s`)

// DetectKernel parses the `dpkg -l` snapshot the trailer command wrote
// to packagesListPath for installed linux-image-* packages and returns
// the version of the newest one, sorted lexically as dpkg's own
// version ordering approximates well enough for Debian's
// numeric-dotted kernel versions. Run after the chroot harness has
// already been unmounted, reading the file directly off the staged
// deployment's own filesystem tree.
func DetectKernel(s *sys.System, deploymentPath string) (string, error) {
	data, err := s.FS().ReadFile(deploymentPath + packagesListPath)
	if err != nil {
		return "", fmt.Errorf("reading package inventory: %w", err)
	}
	var versions []string
	for _, line := range strings.Split(string(data), "\n") {
		if m := linuxImagePattern.FindStringSubmatch(line); m != nil {
			versions = append(versions, m[1])
		}
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no linux-image package found in %s", deploymentPath)
	}
	sort.Strings(versions)
	return versions[len(versions)-1], nil
}

// SystemVersion hashes the package inventory the trailer command wrote
// to packagesListPath, then deletes it so the deployment's final
// contents don't depend on when the snapshot was taken - only on which
// packages are installed. Like DetectKernel, this runs after the
// chroot harness has been unmounted.
func SystemVersion(s *sys.System, deploymentPath string) (string, error) {
	path := deploymentPath + packagesListPath
	data, err := s.FS().ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading package inventory: %w", err)
	}
	digest := sha256.Sum256(data)
	if err := s.FS().Remove(path); err != nil {
		return "", fmt.Errorf("removing package inventory: %w", err)
	}
	return hex.EncodeToString(digest[:]), nil
}
