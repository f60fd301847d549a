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

package btrfs

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
)

const TopSubVol = "@"

// ErrSnapshotError wraps every failed `btrfs` invocation this package
// makes, per the Snapshot Store's error contract.
var ErrSnapshotError = errors.New("btrfs operation failed")

// CreateSubvolume creates a btrfs subvolume to the given path
func CreateSubvolume(s *sys.System, path string, copyOnWrite bool) error {
	s.Logger().Debug("Creating subvolume: %s", path)
	err := vfs.MkdirAll(s.FS(), filepath.Dir(path), vfs.DirPerm)
	if err != nil {
		return fmt.Errorf("creating subvolume path %s: %w", path, err)
	}
	cmdOut, err := s.Runner().Run("btrfs", "subvolume", "create", path)
	if err != nil {
		return fmt.Errorf("%w: creating subvolume %s: %s: %s", ErrSnapshotError, path, string(cmdOut), err)
	}
	if !copyOnWrite {
		return NoCopyOnWrite(s, path)
	}
	return nil
}

// NoCopyOnWrite disables copy on write to the given subvolume
func NoCopyOnWrite(s *sys.System, path string) error {
	cmdOut, err := s.Runner().Run("chattr", "+C", path)
	if err != nil {
		return fmt.Errorf("setting no copy on write for volume '%s': %s: %w", path, string(cmdOut), err)
	}
	return nil
}

// CreateSnapshot creates a btrfs snapshot to the given path from the given base
func CreateSnapshot(s *sys.System, path, base string, copyOnWrite bool) error {
	s.Logger().Debug("Creating snapshot: %s", path)
	err := vfs.MkdirAll(s.FS(), filepath.Dir(path), vfs.DirPerm)
	if err != nil {
		return fmt.Errorf("creating snapshot subvolume path %s: %w", path, err)
	}

	cmdOut, err := s.Runner().Run("btrfs", "subvolume", "snapshot", base, path)
	if err != nil {
		return fmt.Errorf("%w: creating snapshot subvolume '%s': %s: %s", ErrSnapshotError, path, string(cmdOut), err)
	}
	if !copyOnWrite {
		return NoCopyOnWrite(s, path)
	}
	return nil
}

// DeleteSubvolume removes the given subvolume. Before removing the subvolume
// it sets the RW property to ensure it can be deleted, if deletion fails
// the property change remains applied.
func DeleteSubvolume(s *sys.System, path string) error {
	s.Logger().Debug("Setting rw property to subvolume: %s", path)
	_, err := s.Runner().Run("btrfs", "property", "set", "-ts", path, "ro", "false")
	if err != nil {
		return fmt.Errorf("%w: setting rw permissions before deletion: %s", ErrSnapshotError, err)
	}
	_, err = s.Runner().Run("btrfs", "subvolume", "delete", "-c", "-R", path)
	if err != nil {
		return fmt.Errorf("%w: deleting subvolume '%s': %s", ErrSnapshotError, path, err)
	}
	return nil
}

// SetDefaultSubvolume sets the given subvolume as the default subvolume to mount
func SetDefaultSubvolume(s *sys.System, path string) error {
	s.Logger().Debug("Setting default subvolume")
	_, err := s.Runner().Run("btrfs", "subvolume", "set-default", path)
	if err != nil {
		return fmt.Errorf("%w: setting default subvolume to '%s': %s", ErrSnapshotError, path, err)
	}
	return nil
}

// SetReadOnly toggles the read-only property of a subvolume. Deployments
// are published by snapshotting read-write, populating, then flipping this
// to true; they are only ever writable again transiently, inside a staged
// update.
func SetReadOnly(s *sys.System, path string, readonly bool) error {
	s.Logger().Debug("Setting subvolume %s read-only=%v", path, readonly)
	_, err := s.Runner().Run("btrfs", "property", "set", "-ts", path, "ro", strconv.FormatBool(readonly))
	if err != nil {
		return fmt.Errorf("%w: setting ro=%v on subvolume '%s': %s", ErrSnapshotError, readonly, path, err)
	}
	return nil
}

var subvolIDLine = regexp.MustCompile(`^Subvolume ID:\s*(\d+)`)

// GetSubvolumeID returns the numeric btrfs subvolume ID of path, parsed out
// of `btrfs subvolume show`.
func GetSubvolumeID(s *sys.System, path string) (string, error) {
	out, err := s.Runner().Run("btrfs", "subvolume", "show", path)
	if err != nil {
		return "", fmt.Errorf("inspecting subvolume '%s': %w", path, err)
	}
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		if m := subvolIDLine.FindStringSubmatch(strings.TrimSpace(scanner.Text())); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("no subvolume ID found for '%s'", path)
}

var subvolListLine = regexp.MustCompile(`^ID (\d+) gen \d+ top level \d+ path (.*)$`)

// Subvolume describes a single row of `btrfs subvolume list`.
type Subvolume struct {
	ID   string
	Path string
}

// ListSubvolumes lists every subvolume below the filesystem mounted at root,
// ordered by path as reported by btrfs.
func ListSubvolumes(s *sys.System, root string) ([]Subvolume, error) {
	out, err := s.Runner().Run("btrfs", "subvolume", "list", "--sort=path", root)
	if err != nil {
		return nil, fmt.Errorf("listing subvolumes under '%s': %w", root, err)
	}

	var volumes []Subvolume
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		m := subvolListLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		volumes = append(volumes, Subvolume{ID: m[1], Path: m[2]})
	}
	sort.Slice(volumes, func(i, j int) bool { return volumes[i].Path < volumes[j].Path })
	return volumes, nil
}

var fsUUIDLine = regexp.MustCompile(`uuid:\s*([0-9a-fA-F-]+)`)

// GetUUID returns the filesystem UUID of the btrfs filesystem
// containing path, parsed out of `btrfs filesystem show`. The
// bootloader writer embeds this UUID in every menu entry's
// `search --fs-uuid` directive.
func GetUUID(s *sys.System, path string) (string, error) {
	out, err := s.Runner().Run("btrfs", "filesystem", "show", path)
	if err != nil {
		return "", fmt.Errorf("inspecting filesystem at '%s': %w", path, err)
	}
	if m := fsUUIDLine.FindStringSubmatch(string(out)); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("no filesystem UUID found for '%s'", path)
}

// SetReadOnlyRecursive toggles the ro property of path and every
// subvolume nested beneath it, discovered via ListSubvolumes. Used to
// lock or unlock the current deployment and everything snapshotted
// under it in one call.
func SetReadOnlyRecursive(s *sys.System, root, path string, readonly bool) error {
	if err := SetReadOnly(s, path, readonly); err != nil {
		return err
	}
	volumes, err := ListSubvolumes(s, root)
	if err != nil {
		return fmt.Errorf("discovering nested subvolumes of '%s': %w", path, err)
	}
	prefix := strings.TrimPrefix(path, root)
	prefix = strings.TrimPrefix(prefix, "/")
	for _, v := range volumes {
		if v.Path == prefix || !strings.HasPrefix(v.Path, prefix+"/") {
			continue
		}
		nested := filepath.Join(root, v.Path)
		if err := SetReadOnly(s, nested, readonly); err != nil {
			return fmt.Errorf("setting ro=%v on nested subvolume '%s': %w", readonly, nested, err)
		}
	}
	return nil
}
