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

	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
)

var _ sys.Syscall = (*Syscall)(nil)

// Syscall is a fake Syscall that records every call it is asked to make
// instead of actually changing the test process's root.
type Syscall struct {
	ChrootCalls     []string
	ChdirCalls      []string
	ErrorOnChroot   bool
	ErrorOnChdir    bool
}

func (s *Syscall) Chroot(path string) error {
	s.ChrootCalls = append(s.ChrootCalls, path)
	if s.ErrorOnChroot {
		return errors.New("chroot error")
	}
	return nil
}

func (s *Syscall) Chdir(path string) error {
	s.ChdirCalls = append(s.ChdirCalls, path)
	if s.ErrorOnChdir {
		return errors.New("chdir error")
	}
	return nil
}

// WasChrootCalledWith reports whether Chroot was ever called with path.
func (s *Syscall) WasChrootCalledWith(path string) bool {
	for _, p := range s.ChrootCalls {
		if p == path {
			return true
		}
	}
	return false
}

// WasChdirCalledWith reports whether Chdir was ever called with path.
func (s *Syscall) WasChdirCalledWith(path string) bool {
	for _, p := range s.ChdirCalls {
		if p == path {
			return true
		}
	}
	return false
}
