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
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/HackerOS-Linux-System/hammer/internal/cli/cmd"
)

func Rollback(ctx *cli.Context) error {
	if err := cmd.RequireRoot(); err != nil {
		return err
	}

	n := 1
	if arg := ctx.Args().First(); arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed < 1 {
			return fmt.Errorf("rollback count must be a positive integer, got %q", arg)
		}
		n = parsed
	}

	s, e, err := engineFrom(ctx)
	if err != nil {
		return err
	}

	d, err := e.Rollback(n)
	if err != nil {
		s.Logger().Error("Rollback failed: %s", err)
		return err
	}
	s.Logger().Info("Rolled back to deployment %s", d.Name())
	return nil
}
