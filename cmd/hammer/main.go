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

package main

import (
	"log"
	"os"

	"github.com/HackerOS-Linux-System/hammer/internal/cli/action"
	"github.com/HackerOS-Linux-System/hammer/internal/cli/app"
	"github.com/HackerOS-Linux-System/hammer/internal/cli/cmd"
)

func main() {
	appName := app.Name()
	application := app.New(
		cmd.Usage,
		cmd.GlobalFlags(),
		cmd.Setup,
		cmd.Teardown,
		cmd.NewInstallCommand(appName, action.Install),
		cmd.NewRemoveCommand(appName, action.Remove),
		cmd.NewDeployCommand(appName, action.Deploy),
		cmd.NewUpdateCommand(appName, action.Update),
		cmd.NewSwitchCommand(appName, action.Switch),
		cmd.NewRollbackCommand(appName, action.Rollback),
		cmd.NewCleanCommand(appName, action.Clean),
		cmd.NewStatusCommand(appName, action.Status),
		cmd.NewHistoryCommand(appName, action.History),
		cmd.NewCheckTransactionCommand(appName, action.CheckTransaction),
		cmd.NewLockCommand(appName, action.Lock),
		cmd.NewUnlockCommand(appName, action.Unlock),
	)

	if err := application.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
