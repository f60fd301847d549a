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

package metadata_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/HackerOS-Linux-System/hammer/pkg/log"
	"github.com/HackerOS-Linux-System/hammer/pkg/metadata"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	sysmock "github.com/HackerOS-Linux-System/hammer/pkg/sys/mock"
)

func TestMetadataSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metadata test suite")
}

var _ = Describe("Record", Label("metadata"), func() {
	var s *sys.System
	var cleanup func()
	const path = "/var/lib/hammer/deployments/hammer-1700000000/meta.json"

	BeforeEach(func() {
		var err error
		var fs sys.FS
		fs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		s, err = sys.NewSystem(sys.WithFS(fs), sys.WithLogger(log.New(log.WithDiscardAll())))
		Expect(err).NotTo(HaveOccurred())
	})
	AfterEach(func() {
		cleanup()
	})

	It("returns an empty record when nothing was ever written", func() {
		rec, err := metadata.Read(s, path)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec).To(BeEmpty())
	})

	It("round-trips a written record", func() {
		Expect(metadata.Write(s, path, metadata.Record{
			metadata.KeyStatus: "ready", metadata.KeyKernel: "6.9.0",
		})).To(Succeed())

		rec, err := metadata.Read(s, path)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec[metadata.KeyStatus]).To(Equal("ready"))
		Expect(rec[metadata.KeyKernel]).To(Equal("6.9.0"))
	})

	It("preserves unknown keys across an update", func() {
		Expect(metadata.Write(s, path, metadata.Record{
			metadata.KeyStatus: "ready", "future-key": "future-value",
		})).To(Succeed())

		Expect(metadata.Update(s, path, metadata.Record{
			metadata.KeyStatus: "booted",
		})).To(Succeed())

		rec, err := metadata.Read(s, path)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec[metadata.KeyStatus]).To(Equal("booted"))
		Expect(rec["future-key"]).To(Equal("future-value"))
	})

	Describe("pending marker", func() {
		const marker = "/var/lib/hammer/pending"

		It("has no pending transaction by default", func() {
			id, err := metadata.ReadPending(s, marker)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeEmpty())
		})

		It("round-trips and clears a pending marker", func() {
			Expect(metadata.WritePending(s, marker, "1700000000")).To(Succeed())

			id, err := metadata.ReadPending(s, marker)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("1700000000"))

			Expect(metadata.ClearPending(s, marker)).To(Succeed())

			id, err = metadata.ReadPending(s, marker)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeEmpty())
		})
	})
})
