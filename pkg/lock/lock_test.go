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

package lock_test

import (
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/HackerOS-Linux-System/hammer/pkg/lock"
	"github.com/HackerOS-Linux-System/hammer/pkg/log"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	sysmock "github.com/HackerOS-Linux-System/hammer/pkg/sys/mock"
)

func TestLockSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Lock test suite")
}

var _ = Describe("Lock", Label("lock"), func() {
	var s *sys.System
	var cleanup func()

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

	It("acquires and releases an exclusive lock", func() {
		l, err := lock.Acquire(s, "/var/lib/hammer/lock")
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Release()).To(Succeed())
	})

	It("refuses a second acquire while the first is held", func() {
		l, err := lock.Acquire(s, "/var/lib/hammer/lock")
		Expect(err).NotTo(HaveOccurred())
		defer l.Release()

		_, err = lock.Acquire(s, "/var/lib/hammer/lock")
		Expect(errors.Is(err, lock.ErrLocked)).To(BeTrue())
	})

	It("releases the lock even when the wrapped function fails", func() {
		wantErr := errors.New("boom")
		err := lock.Do(s, "/var/lib/hammer/lock", func() error {
			return wantErr
		})
		Expect(err).To(Equal(wantErr))

		_, err = lock.Acquire(s, "/var/lib/hammer/lock")
		Expect(err).NotTo(HaveOccurred())
	})
})
