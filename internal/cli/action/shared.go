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

// Package action implements the Action callback behind every hammer
// CLI command: extracting the *sys.System stashed by cmd.Setup,
// building a transaction.Engine around it, and translating its results
// into CLI output and exit behavior.
package action

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/HackerOS-Linux-System/hammer/internal/cli/cmd"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	"github.com/HackerOS-Linux-System/hammer/pkg/transaction"
)

func systemFrom(ctx *cli.Context) (*sys.System, error) {
	return cmd.SystemFrom(ctx)
}

func engineFrom(ctx *cli.Context) (*sys.System, *transaction.Engine, error) {
	s, err := systemFrom(ctx)
	if err != nil {
		return nil, nil, err
	}
	e := transaction.New(s, transaction.WithKernelCmdline(ctx.String("cmdline")))
	return s, e, nil
}

func requirePkgArg(ctx *cli.Context) (string, error) {
	pkg := ctx.Args().First()
	if pkg == "" {
		return "", fmt.Errorf("a package name is required")
	}
	return pkg, nil
}
