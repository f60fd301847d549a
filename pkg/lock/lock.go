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

// Package lock enforces the single-writer discipline every transaction
// step depends on: at most one hammer process may be mutating the
// deployment tree at a time.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
)

// ErrLocked is returned by Acquire when another process already holds
// the lock file.
var ErrLocked = errors.New("another hammer process is already running")

// Lock is a held advisory lock on path, owned by this process.
type Lock struct {
	s    *sys.System
	path string
}

// Acquire creates path exclusively, writing this process's PID inside
// it, and fails with ErrLocked if it already exists. Stale locks left
// behind by a crashed process are the operator's call to clear; hammer
// never removes a lock file it did not create itself in this call.
func Acquire(s *sys.System, path string) (*Lock, error) {
	if err := vfs.MkdirAll(s.FS(), filepath.Dir(path), vfs.DirPerm); err != nil {
		return nil, fmt.Errorf("preparing lock directory: %w", err)
	}

	f, err := s.FS().OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("creating lock file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return nil, fmt.Errorf("writing lock file %s: %w", path, err)
	}

	return &Lock{s: s, path: path}, nil
}

// Release removes the lock file, freeing the tree for the next writer.
func (l *Lock) Release() error {
	if err := l.s.FS().Remove(l.path); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return nil
}

// Do acquires the lock at path, runs fn, and always releases the lock
// afterward regardless of whether fn succeeded.
func Do(s *sys.System, path string, fn func() error) error {
	l, err := Acquire(s, path)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := l.Release(); relErr != nil {
			s.Logger().Error("releasing lock %s: %s", path, relErr)
		}
	}()
	return fn()
}
