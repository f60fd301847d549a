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

// Package syscall wraps the raw chroot(2)/chdir(2) calls the Chroot
// Harness needs, isolated behind an interface so tests never actually
// change the test process's root.
package syscall

import "golang.org/x/sys/unix"

type sc struct{}

// New returns the real, unix-backed Syscall implementation.
func New() *sc {
	return &sc{}
}

func (s sc) Chroot(path string) error {
	return unix.Chroot(path)
}

func (s sc) Chdir(path string) error {
	return unix.Chdir(path)
}
