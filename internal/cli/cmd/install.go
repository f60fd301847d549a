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

// InstallFlags holds the flag values NewInstallCommand binds for its action.
type InstallFlags struct {
	Container bool
}

var InstallArgs InstallFlags

// NewInstallCommand stages a new deployment snapshotted from current,
// installs a single package inside it, and publishes the result.
// --container bypasses the transaction engine entirely and delegates
// to the separate container install tool.
func NewInstallCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "Install a package into a new deployment",
		ArgsUsage: "<pkg>",
		UsageText: fmt.Sprintf("%s install <pkg> [--container]", appName),
		Action:    action,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "container",
				Usage:       "Delegate to the container-based install tool instead",
				Destination: &InstallArgs.Container,
			},
		},
	}
}
