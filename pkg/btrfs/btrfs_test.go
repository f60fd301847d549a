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

package btrfs_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/HackerOS-Linux-System/hammer/pkg/btrfs"
	"github.com/HackerOS-Linux-System/hammer/pkg/log"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	sysmock "github.com/HackerOS-Linux-System/hammer/pkg/sys/mock"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
)

func TestBtrfsSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Btrfs test suite")
}

var _ = Describe("Btrfs", Label("btrfs"), func() {
	var tfs vfs.FS
	var s *sys.System
	var cleanup func()
	var err error
	var runner *sysmock.Runner
	BeforeEach(func() {
		runner = sysmock.NewRunner()
		tfs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		s, err = sys.NewSystem(
			sys.WithFS(tfs), sys.WithLogger(log.New(log.WithDiscardAll())),
			sys.WithRunner(runner),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(vfs.MkdirAll(tfs, "/etc", vfs.DirPerm)).To(Succeed())
	})
	AfterEach(func() {
		cleanup()
	})
	It("creates a subvolume without copy on write", func() {
		Expect(btrfs.CreateSubvolume(s, "/path/to/subvolume", false)).To(Succeed())
		Expect(runner.IncludesCmds([][]string{
			{"btrfs", "subvolume", "create", "/path/to/subvolume"},
			{"chattr", "+C", "/path/to/subvolume"},
		})).To(Succeed())
	})
	It("creates a snapshot without copy on write", func() {
		Expect(btrfs.CreateSnapshot(s, "/path/to/new/subvolume", "/path/to/old/subvolume", false)).To(Succeed())
		Expect(runner.IncludesCmds([][]string{
			{"btrfs", "subvolume", "snapshot", "/path/to/old/subvolume", "/path/to/new/subvolume"},
			{"chattr", "+C", "/path/to/new/subvolume"},
		})).To(Succeed())
	})
	It("sets default subvolume", func() {
		Expect(btrfs.SetDefaultSubvolume(s, "/path/to/subvolume")).To(Succeed())
		Expect(runner.IncludesCmds([][]string{
			{"btrfs", "subvolume", "set-default", "/path/to/subvolume"},
		})).To(Succeed())
	})
	It("deletes subvolume", func() {
		Expect(btrfs.DeleteSubvolume(s, "/path/to/subvolume")).To(Succeed())
		Expect(runner.IncludesCmds([][]string{
			{"btrfs", "property", "set", "-ts", "/path/to/subvolume", "ro", "false"},
			{"btrfs", "subvolume", "delete", "-c", "-R", "/path/to/subvolume"},
		})).To(Succeed())
	})
	It("sets read-only property", func() {
		Expect(btrfs.SetReadOnly(s, "/path/to/subvolume", true)).To(Succeed())
		Expect(runner.IncludesCmds([][]string{
			{"btrfs", "property", "set", "-ts", "/path/to/subvolume", "ro", "true"},
		})).To(Succeed())
	})
	It("parses the subvolume ID from show output", func() {
		runner.SideEffect = func(command string, args ...string) ([]byte, error) {
			return []byte("/path/to/subvolume\n\tName: \t\t\tsubvolume\n\tSubvolume ID:\t\t266\n\tGeneration:\t\t45\n"), nil
		}
		id, err := btrfs.GetSubvolumeID(s, "/path/to/subvolume")
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("266"))
	})
	It("lists subvolumes sorted by path", func() {
		runner.SideEffect = func(command string, args ...string) ([]byte, error) {
			return []byte("ID 256 gen 10 top level 5 path deployments/hammer-1700000000\n" +
				"ID 257 gen 11 top level 5 path deployments/hammer-1700000100\n"), nil
		}
		volumes, err := btrfs.ListSubvolumes(s, "/")
		Expect(err).NotTo(HaveOccurred())
		Expect(volumes).To(HaveLen(2))
		Expect(volumes[0].ID).To(Equal("256"))
		Expect(volumes[0].Path).To(Equal("deployments/hammer-1700000000"))
	})
})
