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

func Status(ctx *cli.Context) error {
	if err := cmd.RequireRoot(); err != nil {
		return err
	}

	s, e, err := engineFrom(ctx)
	if err != nil {
		return err
	}

	st, err := query.GetStatus(s, e)
	if err != nil {
		return err
	}

	if !st.HasCurrent {
		fmt.Println("No current deployment.")
	} else {
		fmt.Printf("Current: %s (status %s, kernel %s)\n", st.Current.Name(), st.Current.Status, st.Current.Kernel)
	}
	if st.TransactionPending {
		fmt.Printf("Transaction pending: %s\n", st.PendingID)
	} else {
		fmt.Println("No transaction pending.")
	}
	fmt.Printf("Deployments retained: %d\n", len(st.Deployments))
	return nil
}
