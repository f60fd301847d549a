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

// Package retention prunes old deployments when explicitly asked to
// (hammer clean), keeping the most recent ones bootable for rollback
// without letting the deployment set grow without bound.
package retention

import (
	"fmt"

	"github.com/HackerOS-Linux-System/hammer/pkg/btrfs"
	"github.com/HackerOS-Linux-System/hammer/pkg/deployment"
	"github.com/HackerOS-Linux-System/hammer/pkg/metadata"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
)

// KeepCount is how many deployments retention keeps, newest first.
// Broken deployments are always removed wherever they fall in that
// order (unless they are current or pending) and never count toward
// the kept total, since they can never be booted.
const KeepCount = 5

// Apply removes deployments beyond the retention window from
// deployments (which must already be sorted newest first, as List
// returns them). currentID is the current deployment and is never
// removed; neither is a deployment matching a live
// pending marker, since it may still be the subject of check-transaction
// reconciliation on next boot.
func Apply(s *sys.System, deployments []deployment.Deployment, currentID string) error {
	pending, err := metadata.ReadPending(s, deployment.PendingMarker)
	if err != nil {
		return fmt.Errorf("reading pending marker: %w", err)
	}

	pendingID := trimIDPrefix(pending)

	kept := 0
	var errs error
	for _, d := range deployments {
		guarded := d.ID == currentID || (pendingID != "" && d.ID == pendingID)
		if guarded {
			kept++
			continue
		}
		if d.Status == deployment.StatusBroken {
			if err := remove(s, d); err != nil {
				errs = joinErr(errs, err)
			}
			continue
		}
		kept++
		if kept <= KeepCount {
			continue
		}
		if err := remove(s, d); err != nil {
			errs = joinErr(errs, err)
		}
	}
	return errs
}

func remove(s *sys.System, d deployment.Deployment) error {
	s.Logger().Info("pruning deployment %s", d.ID)
	if err := btrfs.SetReadOnly(s, d.Path(), false); err != nil {
		return fmt.Errorf("preparing %s for removal: %w", d.ID, err)
	}
	if err := btrfs.DeleteSubvolume(s, d.Path()); err != nil {
		return fmt.Errorf("removing deployment %s: %w", d.ID, err)
	}
	return nil
}

func joinErr(existing, next error) error {
	if existing == nil {
		return next
	}
	return fmt.Errorf("%w; %w", existing, next)
}

func trimIDPrefix(name string) string {
	if len(name) > len(deployment.IDPrefix) && name[:len(deployment.IDPrefix)] == deployment.IDPrefix {
		return name[len(deployment.IDPrefix):]
	}
	return name
}
