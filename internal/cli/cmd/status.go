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

func NewStatusCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the current deployment and whether a transaction is pending",
		UsageText: fmt.Sprintf("%s status", appName),
		Action:    action,
	}
}
