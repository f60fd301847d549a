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

package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// NewLockCommand sets the current deployment and everything snapshotted
// beneath it recursively read-only, guarding against accidental writes
// to a subvolume that is meant to be immutable outside a transaction.
func NewLockCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "lock",
		Usage:     "Set the current deployment recursively read-only",
		UsageText: fmt.Sprintf("%s lock", appName),
		Action:    action,
	}
}

// NewUnlockCommand is the inverse of lock: it sets the current
// deployment and its nested subvolumes read-write, for operators who
// need to edit a running system in place outside the normal
// install/remove/update/deploy flow.
func NewUnlockCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "unlock",
		Usage:     "Set the current deployment recursively read-write",
		UsageText: fmt.Sprintf("%s unlock", appName),
		Action:    action,
	}
}
