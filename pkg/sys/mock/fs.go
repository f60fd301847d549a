/*
Copyright © 2022-2025 SUSE LLC
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

package mock

import (
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
)

// TestFS builds a throwaway, real-on-disk filesystem rooted at a temp
// directory, pre-populated from root (a vfst.Builder-style tree, nil
// for an empty root). It returns the FS, a cleanup func to remove the
// backing temp directory, and any setup error.
func TestFS(root any) (sys.FS, func(), error) {
	if root == nil {
		root = map[string]any{}
	}
	fs, cleanup, err := vfst.NewTestFS(root)
	if err != nil {
		return nil, func() {}, err
	}
	return fs, cleanup, nil
}
