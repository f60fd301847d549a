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

package query_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/HackerOS-Linux-System/hammer/pkg/deployment"
	"github.com/HackerOS-Linux-System/hammer/pkg/log"
	"github.com/HackerOS-Linux-System/hammer/pkg/metadata"
	"github.com/HackerOS-Linux-System/hammer/pkg/query"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	sysmock "github.com/HackerOS-Linux-System/hammer/pkg/sys/mock"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
	"github.com/HackerOS-Linux-System/hammer/pkg/transaction"
)

func TestQuerySuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Query test suite")
}

func withBootableContent(fs sys.FS, d deployment.Deployment) {
	Expect(vfs.MkdirAll(fs, d.Path()+"/boot", vfs.DirPerm)).To(Succeed())
	Expect(fs.WriteFile(d.Path()+"/boot/vmlinuz-6.9.0", []byte("k"), vfs.FilePerm)).To(Succeed())
	Expect(vfs.MkdirAll(fs, d.Path()+"/boot", vfs.DirPerm)).To(Succeed())
	Expect(fs.WriteFile(d.Path()+"/boot/initrd.img-6.9.0", []byte("i"), vfs.FilePerm)).To(Succeed())
	for _, dir := range []string{"/proc", "/sys", "/dev"} {
		Expect(vfs.MkdirAll(fs, d.Path()+dir, vfs.DirPerm)).To(Succeed())
	}
}

// commit seeds d as a committed deployment: a ready metadata record
// and the current symlink pointing at it.
func commit(s *sys.System, fs sys.FS, d deployment.Deployment) error {
	if err := metadata.WriteNew(s, metadata.Path(d.Path()), time.Now(), metadata.WriteOpts{
		Status: deployment.StatusReady.String(), Kernel: "6.9.0",
	}); err != nil {
		return err
	}
	return fs.Symlink(d.Path(), deployment.CurrentLink)
}

var _ = Describe("GetStatus", Label("query"), func() {
	var s *sys.System
	var fs sys.FS
	var cleanup func()
	var engine *transaction.Engine

	BeforeEach(func() {
		var err error
		fs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(vfs.MkdirAll(fs, "/etc/grub.d", vfs.DirPerm)).To(Succeed())
		s, err = sys.NewSystem(
			sys.WithFS(fs), sys.WithRunner(sysmock.NewRunner()), sys.WithMounter(sysmock.NewMounter()),
			sys.WithSyscall(&sysmock.Syscall{}), sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
		engine = transaction.New(s)
	})
	AfterEach(func() {
		cleanup()
	})

	It("reports no current deployment before any transaction has committed", func() {
		status, err := query.GetStatus(s, engine)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.HasCurrent).To(BeFalse())
		Expect(status.TransactionPending).To(BeFalse())
	})

	It("reports the current deployment and full history after a commit", func() {
		committed := deployment.Deployment{ID: "20250101120000"}
		withBootableContent(fs, committed)
		Expect(commit(s, fs, committed)).To(Succeed())

		status, err := query.GetStatus(s, engine)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.HasCurrent).To(BeTrue())
		Expect(status.Current.ID).To(Equal(committed.ID))
		Expect(status.Deployments).To(HaveLen(1))
		Expect(status.TransactionPending).To(BeFalse())
	})

	It("surfaces a pending transaction", func() {
		staged := deployment.Deployment{ID: "20250101120000"}
		Expect(metadata.WritePending(s, deployment.PendingMarker, staged.Name())).To(Succeed())

		status, err := query.GetStatus(s, engine)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.TransactionPending).To(BeTrue())

		Expect(status.PendingID).To(Equal(staged.Name()))
	})
})

var _ = Describe("History", Label("query"), func() {
	It("delegates to the engine's List", func() {
		fs, cleanup, err := sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		defer cleanup()
		Expect(vfs.MkdirAll(fs, "/etc/grub.d", vfs.DirPerm)).To(Succeed())

		s, err := sys.NewSystem(
			sys.WithFS(fs), sys.WithRunner(sysmock.NewRunner()), sys.WithMounter(sysmock.NewMounter()),
			sys.WithSyscall(&sysmock.Syscall{}), sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
		engine := transaction.New(s)

		committed := deployment.Deployment{ID: "20250101120000"}
		withBootableContent(fs, committed)
		Expect(commit(s, fs, committed)).To(Succeed())

		history, err := query.History(engine)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(1))
		Expect(history[0].ID).To(Equal(committed.ID))
	})
})
