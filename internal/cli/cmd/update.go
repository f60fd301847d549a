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

// NewUpdateCommand stages a new deployment snapshotted from current,
// upgrades every installed package inside it, and publishes the result.
func NewUpdateCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Stage a new deployment, upgrade every package inside it, and publish it",
		UsageText: fmt.Sprintf("%s update", appName),
		Action:    action,
	}
}
