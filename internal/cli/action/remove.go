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

func Remove(ctx *cli.Context) error {
	pkg, err := requirePkgArg(ctx)
	if err != nil {
		return err
	}

	if cmd.RemoveArgs.Container {
		s, err := systemFrom(ctx)
		if err != nil {
			return err
		}
		return s.Runner().RunInherit(containerTool, "remove", pkg)
	}

	if err := cmd.RequireRoot(); err != nil {
		return err
	}

	s, e, err := engineFrom(ctx)
	if err != nil {
		return err
	}
	s.Logger().Info("Removing %s in a new deployment", pkg)

	d, err := e.Remove(pkg)
	if err != nil {
		s.Logger().Error("Remove failed: %s", err)
		return err
	}
	s.Logger().Info("Published deployment %s (kernel %s)", d.Name(), d.Kernel)
	return nil
}
