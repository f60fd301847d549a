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
	"github.com/HackerOS-Linux-System/hammer/pkg/btrfs"
	"github.com/HackerOS-Linux-System/hammer/pkg/deployment"
	"github.com/HackerOS-Linux-System/hammer/pkg/query"
)

func setCurrentReadOnly(ctx *cli.Context, readonly bool) error {
	if err := cmd.RequireRoot(); err != nil {
		return err
	}

	s, e, err := engineFrom(ctx)
	if err != nil {
		return err
	}

	deployments, err := e.List()
	if err != nil {
		return err
	}
	current, hasCurrent, err := query.Current(s, deployments)
	if err != nil {
		return err
	}
	if !hasCurrent {
		return fmt.Errorf("no current deployment to lock")
	}

	if err := btrfs.SetReadOnlyRecursive(s, deployment.Root, current.Path(), readonly); err != nil {
		s.Logger().Error("Setting current deployment read-only=%v failed: %s", readonly, err)
		return err
	}
	s.Logger().Info("Current deployment %s is now read-only=%v", current.Name(), readonly)
	return nil
}

func Lock(ctx *cli.Context) error {
	return setCurrentReadOnly(ctx, true)
}

func Unlock(ctx *cli.Context) error {
	return setCurrentReadOnly(ctx, false)
}
