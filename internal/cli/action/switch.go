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
	"github.com/urfave/cli/v2"

	"github.com/HackerOS-Linux-System/hammer/internal/cli/cmd"
)

// Switch makes an existing deployment the default. With no argument it
// falls back to rolling back one step, the same target `rollback`
// picks with no count.
func Switch(ctx *cli.Context) error {
	if err := cmd.RequireRoot(); err != nil {
		return err
	}

	s, e, err := engineFrom(ctx)
	if err != nil {
		return err
	}

	name := ctx.Args().First()
	if name == "" {
		d, err := e.Rollback(1)
		if err != nil {
			s.Logger().Error("Switch failed: %s", err)
			return err
		}
		s.Logger().Info("Switched to deployment %s", d.Name())
		return nil
	}

	d, err := e.SwitchByName(name)
	if err != nil {
		s.Logger().Error("Switch failed: %s", err)
		return err
	}
	s.Logger().Info("Switched to deployment %s", d.Name())
	return nil
}
