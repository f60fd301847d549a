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

package bootloader_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/HackerOS-Linux-System/hammer/pkg/bootloader"
	"github.com/HackerOS-Linux-System/hammer/pkg/deployment"
	"github.com/HackerOS-Linux-System/hammer/pkg/log"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	sysmock "github.com/HackerOS-Linux-System/hammer/pkg/sys/mock"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
)

func TestBootloaderSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bootloader test suite")
}

var _ = Describe("Bootloader", Label("bootloader"), func() {
	var s *sys.System
	var fs sys.FS
	var cleanup func()
	var runner *sysmock.Runner
	const depPath = "/btrfs-root/deployments/hammer-20250101120000"

	BeforeEach(func() {
		var err error
		fs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(vfs.MkdirAll(fs, depPath+"/etc/grub.d", vfs.DirPerm)).To(Succeed())
		runner = sysmock.NewRunner()
		s, err = sys.NewSystem(sys.WithFS(fs), sys.WithRunner(runner), sys.WithLogger(log.New(log.WithDiscardAll())))
		Expect(err).NotTo(HaveOccurred())
	})
	AfterEach(func() {
		cleanup()
	})

	It("skips deployments with no recorded kernel", func() {
		deployments := []deployment.Deployment{
			{ID: "1700000000", Created: time.Unix(1700000000, 0), Status: deployment.StatusReady},
		}
		entries := bootloader.EntriesFromDeployments(deployments, "", "")
		Expect(entries).To(BeEmpty())
	})

	It("skips deployments in the previous or broken states", func() {
		deployments := []deployment.Deployment{
			{ID: "1700000000", Created: time.Unix(1700000000, 0), Status: deployment.StatusPrevious, Kernel: "6.9.0"},
			{ID: "1700000001", Created: time.Unix(1700000001, 0), Status: deployment.StatusBroken, Kernel: "6.9.0"},
		}
		entries := bootloader.EntriesFromDeployments(deployments, "", "")
		Expect(entries).To(BeEmpty())
	})

	It("orders entries newest first and caps at MaxMenuEntries", func() {
		var deployments []deployment.Deployment
		for i := 0; i < bootloader.MaxMenuEntries+2; i++ {
			created := time.Unix(int64(1700000000+i), 0)
			deployments = append(deployments, deployment.Deployment{
				ID:      fmt.Sprintf("%d", created.Unix()),
				Created: created,
				Status:  deployment.StatusReady,
				Kernel:  "6.9.0",
			})
		}
		entries := bootloader.EntriesFromDeployments(deployments, "uuid-1", "quiet")
		Expect(entries).To(HaveLen(bootloader.MaxMenuEntries))
		Expect(entries[0].Name).To(Equal(deployments[len(deployments)-1].Name()))
		Expect(entries[0].Cmdline).To(Equal("quiet"))
		Expect(entries[0].UUID).To(Equal("uuid-1"))
	})

	It("writes an executable grub.d fragment without invoking update-grub itself", func() {
		d := deployment.Deployment{ID: "20250101120000", Created: time.Unix(1700000000, 0), Status: deployment.StatusBooted, Kernel: "6.9.0"}

		Expect(bootloader.Regenerate(s, depPath, []deployment.Deployment{d}, "uuid-1", "quiet")).To(Succeed())

		info, err := fs.Stat(depPath + bootloader.FragmentName)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0755)))

		content, err := fs.ReadFile(depPath + bootloader.FragmentName)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(ContainSubstring(d.Name()))
		Expect(string(content)).To(ContainSubstring("uuid-1"))

		Expect(runner.IncludesCmds([][]string{{"update-grub"}})).To(HaveOccurred())
	})
})
