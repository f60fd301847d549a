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

package action

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/HackerOS-Linux-System/hammer/internal/cli/cmd"
	"github.com/HackerOS-Linux-System/hammer/pkg/query"
)

func History(ctx *cli.Context) error {
	if err := cmd.RequireRoot(); err != nil {
		return err
	}

	_, e, err := engineFrom(ctx)
	if err != nil {
		return err
	}

	deployments, err := query.History(e)
	if err != nil {
		return err
	}

	for _, d := range deployments {
		reason := ""
		if d.RollbackReason != "" {
			reason = " (" + d.RollbackReason + ")"
		}
		fmt.Printf("%s  %-8s  %-24s  kernel %s%s\n", d.Name(), d.Status, d.Action, d.Kernel, reason)
	}
	return nil
}
