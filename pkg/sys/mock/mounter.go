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

package mock

import (
	"errors"
	"fmt"

	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
)

var _ sys.Mounter = (*Mounter)(nil)

// mountEntry is a single bind mount recorded by the fake.
type mountEntry struct {
	source string
	target string
	fstype string
	opts   []string
}

// Mounter is a fake Mounter for tests, tracking active mounts in memory
// so Chroot Harness tests can assert mount/unmount pairing without
// touching the real mount table.
type Mounter struct {
	ErrorOnMount   bool
	ErrorOnUnmount bool
	mounts         []mountEntry
}

func NewMounter() *Mounter {
	return &Mounter{}
}

func (m *Mounter) Mount(source string, target string, fstype string, options []string) error {
	if m.ErrorOnMount {
		return errors.New("mount error")
	}
	m.mounts = append(m.mounts, mountEntry{source: source, target: target, fstype: fstype, opts: options})
	return nil
}

func (m *Mounter) Unmount(target string) error {
	if m.ErrorOnUnmount {
		return errors.New("unmount error")
	}
	for i, e := range m.mounts {
		if e.target == target {
			m.mounts = append(m.mounts[:i], m.mounts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("target not mounted: %s", target)
}

// IsMounted reports whether target is currently tracked as mounted.
func (m *Mounter) IsMounted(target string) bool {
	for _, e := range m.mounts {
		if e.target == target {
			return true
		}
	}
	return false
}

// Mounts returns the targets currently tracked as mounted, in mount order.
func (m *Mounter) Mounts() []string {
	targets := make([]string, 0, len(m.mounts))
	for _, e := range m.mounts {
		targets = append(targets, e.target)
	}
	return targets
}
