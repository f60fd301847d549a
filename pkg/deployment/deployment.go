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

// Package deployment models a single btrfs-backed, bootable root
// filesystem and its place in the deployment history tracked by the
// transaction engine.
package deployment

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"
)

const (
	// Root is the top-level directory hammer owns on the system btrfs
	// filesystem. Every other fixed path hangs off it.
	Root = "/btrfs-root"

	// DeploymentsDir holds one subvolume per deployment, named by ID.
	DeploymentsDir = Root + "/deployments"

	// CurrentLink is the symlink the bootloader and running system
	// resolve to find the active deployment.
	CurrentLink = Root + "/current"

	// PendingMarker records an in-flight transaction's target deployment
	// so it can be reconciled if the process is interrupted before the
	// symlink swap commits.
	PendingMarker = Root + "/hammer-transaction"

	// LockFile is the advisory single-writer lock for the whole tree.
	LockFile = "/run/hammer.lock"

	// IDPrefix names every deployment subvolume, e.g. "hammer-20250101120000".
	IDPrefix = "hammer-"

	// idLayout is the local wall-clock layout deployment IDs are derived
	// from: one-second resolution, no separators.
	idLayout = "20060102150405"

	// MaxNameCollisionAttempts bounds the one-second disambiguation loop
	// used when two deployments would otherwise share a timestamp.
	MaxNameCollisionAttempts = 60
)

// Status is the lifecycle state of a deployment.
type Status int

const (
	StatusUnknown Status = iota
	// StatusReady deployments are fully populated and bootable but have
	// never been booted into.
	StatusReady
	// StatusBooted is the single deployment currently running.
	StatusBooted
	// StatusPrevious deployments were current before a later switch and
	// remain eligible for rollback, but are left out of the bootloader
	// menu.
	StatusPrevious
	// StatusBroken deployments failed first-boot confirmation or sanity
	// checks and are excluded from the bootloader menu and retention
	// guards (though never deleted out from under a live pending marker).
	StatusBroken
)

func ParseStatus(s string) (Status, error) {
	switch s {
	case "ready":
		return StatusReady, nil
	case "booted":
		return StatusBooted, nil
	case "previous":
		return StatusPrevious, nil
	case "broken":
		return StatusBroken, nil
	default:
		return StatusUnknown, fmt.Errorf("unknown deployment status: %s", s)
	}
}

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusBooted:
		return "booted"
	case StatusPrevious:
		return "previous"
	case StatusBroken:
		return "broken"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) (err error) {
	var str string
	if err = json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s, err = ParseStatus(str)
	return err
}

// Deployment is one btrfs subvolume snapshot tracked by hammer, and
// the metadata record sitting alongside it.
type Deployment struct {
	// ID is the deployment's basename without the "hammer-" prefix: a
	// YYYYMMDDhhmmss local-time timestamp, possibly with a trailing
	// "-N" disambiguation suffix.
	ID string `json:"id"`
	// Created is the RFC 3339 UTC construction time recorded in
	// meta.json. It need not parse back to ID's local-time encoding.
	Created time.Time `json:"created"`
	// Action is the free-form operation that produced this deployment:
	// "deploy", "update", "install <pkg>", "remove <pkg>".
	Action string `json:"action,omitempty"`
	// Parent is the basename of the deployment this one was snapshotted
	// from, empty only for the very first deployment on a system.
	Parent string `json:"parent,omitempty"`
	// Kernel is the version of the newest linux-image-* package staged
	// inside the deployment.
	Kernel string `json:"kernel,omitempty"`
	// SystemVersion is the hex SHA-256 digest of the installed package
	// inventory at build time.
	SystemVersion string `json:"system_version,omitempty"`
	// Status is the deployment's lifecycle state.
	Status Status `json:"status"`
	// RollbackReason is set when Status transitions to previous/broken
	// by something other than a normal publish (manual switch, a
	// failed first-boot confirmation).
	RollbackReason string `json:"rollback_reason,omitempty"`
}

// Name is the subvolume basename, "hammer-<ID>".
func (d Deployment) Name() string {
	return IDPrefix + d.ID
}

// Path is the btrfs subvolume path backing the deployment.
func (d Deployment) Path() string {
	return filepath.Join(DeploymentsDir, d.Name())
}

// NewID derives a deployment ID from now at one-second resolution,
// disambiguating against existing by appending "-1", "-2", ... when
// the bare timestamp is already taken, so two transactions started
// within the same second never collide.
func NewID(now time.Time, existing map[string]bool) (string, error) {
	base := now.Format(idLayout)
	if !existing[base] {
		return base, nil
	}
	for i := 1; i <= MaxNameCollisionAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !existing[candidate] {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not find a free deployment id derived from %s", base)
}

// SortByCreatedDesc sorts deployments newest-first, the order the
// bootloader menu and `hammer history` present.
func SortByCreatedDesc(deployments []Deployment) {
	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].Created.After(deployments[j].Created)
	})
}
