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

// Package query implements the read-only reporting surface over the
// deployment set: `status`, `history`, and a check of whether a
// transaction is currently pending. It never mutates state; writers
// go through pkg/transaction instead.
package query

import (
	"fmt"
	"path/filepath"

	"github.com/HackerOS-Linux-System/hammer/pkg/deployment"
	"github.com/HackerOS-Linux-System/hammer/pkg/metadata"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
)

// Lister is the subset of transaction.Engine this package depends on,
// kept narrow so query never needs to import the engine's mutating API.
type Lister interface {
	List() ([]deployment.Deployment, error)
}

// Status summarizes the current state of the deployment tree.
type Status struct {
	Current            deployment.Deployment
	HasCurrent         bool
	PendingID          string // full deployment basename, e.g. "hammer-20250101120000"
	TransactionPending bool
	Deployments        []deployment.Deployment
}

// Current resolves the `current` symlink to a deployment, reading its
// metadata along the way. hasCurrent is false before the first
// transaction has ever committed.
func Current(s *sys.System, deployments []deployment.Deployment) (d deployment.Deployment, hasCurrent bool, err error) {
	ok, err := vfs.Exists(s.FS(), deployment.CurrentLink)
	if err != nil {
		return d, false, fmt.Errorf("checking current symlink: %w", err)
	}
	if !ok {
		return d, false, nil
	}
	target, err := s.FS().Readlink(deployment.CurrentLink)
	if err != nil {
		return d, false, fmt.Errorf("reading current symlink: %w", err)
	}
	id := trimIDPrefix(filepath.Base(target))
	for _, candidate := range deployments {
		if candidate.ID == id {
			return candidate, true, nil
		}
	}
	return deployment.Deployment{ID: id}, true, nil
}

// GetStatus assembles the full status report: the deployment list, the
// current deployment, and whether a transaction is pending reconciliation.
func GetStatus(s *sys.System, l Lister) (Status, error) {
	deployments, err := l.List()
	if err != nil {
		return Status{}, fmt.Errorf("listing deployments: %w", err)
	}

	current, hasCurrent, err := Current(s, deployments)
	if err != nil {
		return Status{}, err
	}

	pending, err := metadata.ReadPending(s, deployment.PendingMarker)
	if err != nil {
		return Status{}, fmt.Errorf("reading pending marker: %w", err)
	}

	return Status{
		Current:            current,
		HasCurrent:         hasCurrent,
		PendingID:          pending,
		TransactionPending: pending != "",
		Deployments:        deployments,
	}, nil
}

// History returns deployments newest-first, as List already orders them.
func History(l Lister) ([]deployment.Deployment, error) {
	return l.List()
}

func trimIDPrefix(name string) string {
	if len(name) > len(deployment.IDPrefix) && name[:len(deployment.IDPrefix)] == deployment.IDPrefix {
		return name[len(deployment.IDPrefix):]
	}
	return name
}
