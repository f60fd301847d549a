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

package deployment_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/HackerOS-Linux-System/hammer/pkg/deployment"
)

func TestDeploymentSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Deployment test suite")
}

var _ = Describe("Status", Label("deployment"), func() {
	It("round-trips through its string form", func() {
		for _, s := range []deployment.Status{
			deployment.StatusReady, deployment.StatusBooted,
			deployment.StatusPrevious, deployment.StatusBroken,
		} {
			parsed, err := deployment.ParseStatus(s.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(s))
		}
	})
	It("rejects unknown statuses", func() {
		_, err := deployment.ParseStatus("deleted")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Deployment", Label("deployment"), func() {
	It("derives its subvolume path from its ID", func() {
		d := deployment.Deployment{ID: "20250101120000"}
		Expect(d.Name()).To(Equal("hammer-20250101120000"))
		Expect(d.Path()).To(Equal("/btrfs-root/deployments/hammer-20250101120000"))
	})

	It("generates a fresh ID at one-second resolution when the timestamp is free", func() {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		id, err := deployment.NewID(now, map[string]bool{})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("20250101120000"))
	})

	It("disambiguates a colliding timestamp", func() {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		existing := map[string]bool{"20250101120000": true, "20250101120000-1": true}
		id, err := deployment.NewID(now, existing)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("20250101120000-2"))
	})

	It("sorts deployments newest-first", func() {
		older := deployment.Deployment{ID: "1", Created: time.Unix(100, 0)}
		newer := deployment.Deployment{ID: "2", Created: time.Unix(200, 0)}
		deployments := []deployment.Deployment{older, newer}
		deployment.SortByCreatedDesc(deployments)
		Expect(deployments[0].ID).To(Equal("2"))
		Expect(deployments[1].ID).To(Equal("1"))
	})
})
