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

// Package bootloader writes the grub.d menu fragment that lists
// bootable deployments, staged inside the new deployment itself so it
// ships as part of that deployment's own /etc. It never rewrites
// grub.cfg directly; that is update-grub's job, run as part of the
// package-manager trailer command sequence inside the deployment's
// chroot. Within a transaction that trailer runs before this fragment
// is written, so a freshly written fragment is picked up by the next
// update-grub run.
package bootloader

import (
	"fmt"
	"text/template"

	"github.com/HackerOS-Linux-System/hammer/pkg/deployment"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
)

// FragmentName is the grub.d script hammer owns, relative to a
// deployment's root. The "25" prefix sorts it after the distro's
// "10_linux" script and before higher-numbered scripts such as
// "30_os-prober".
const FragmentName = "/etc/grub.d/25_hammer_entries"

// MaxMenuEntries caps how many deployments appear in the boot menu,
// keeping it readable even with a long retained history.
const MaxMenuEntries = 5

// Entry is one deployment row rendered into the grub.d fragment.
type Entry struct {
	Name    string
	Kernel  string
	Initrd  string
	UUID    string
	Cmdline string
}

const fragmentTemplate = `#!/bin/sh
exec tail -n +3 $0
# This file is generated by hammer. Do not edit.
{{range .}}
menuentry 'HammerOS ({{.Name}})' {
	insmod gzio; insmod part_gpt; insmod btrfs
	search --no-floppy --fs-uuid --set=root {{.UUID}}
	linux /deployments/{{.Name}}/boot/vmlinuz-{{.Kernel}} root=UUID={{.UUID}} rw rootflags=subvol=deployments/{{.Name}} quiet splash $vt_handoff{{if .Cmdline}} {{.Cmdline}}{{end}}
	initrd /deployments/{{.Name}}/boot/initrd.img-{{.Kernel}}
}
{{end}}`

var fragmentTmpl = template.Must(template.New("hammer-grub-fragment").Parse(fragmentTemplate))

// WriteFragment renders entries (already filtered, capped and ordered
// by the caller) into <deploymentPath>/FragmentName with executable
// permissions, as grub.d scripts must be to be picked up by
// update-grub.
func WriteFragment(s *sys.System, deploymentPath string, entries []Entry) error {
	if len(entries) > MaxMenuEntries {
		entries = entries[:MaxMenuEntries]
	}

	path := deploymentPath + FragmentName
	f, err := s.FS().Create(path)
	if err != nil {
		return fmt.Errorf("creating bootloader fragment %s: %w", path, err)
	}
	defer f.Close()

	if err := fragmentTmpl.Execute(f, entries); err != nil {
		return fmt.Errorf("rendering bootloader fragment %s: %w", path, err)
	}

	if err := s.FS().Chmod(path, 0755); err != nil {
		return fmt.Errorf("setting executable bit on %s: %w", path, err)
	}
	return nil
}

// EntriesFromDeployments selects the ready/booted deployments eligible
// for the boot menu (status previous is excluded: only the two "can
// still be booted without anything further happening" states count),
// newest first, capped at MaxMenuEntries, skipping any deployment
// whose kernel wasn't recorded in its own metadata.
func EntriesFromDeployments(deployments []deployment.Deployment, uuid, cmdline string) []Entry {
	ordered := make([]deployment.Deployment, len(deployments))
	copy(ordered, deployments)
	deployment.SortByCreatedDesc(ordered)

	var entries []Entry
	for _, d := range ordered {
		if len(entries) >= MaxMenuEntries {
			break
		}
		if d.Status != deployment.StatusReady && d.Status != deployment.StatusBooted {
			continue
		}
		if d.Kernel == "" {
			continue
		}
		entries = append(entries, Entry{
			Name:    d.Name(),
			Kernel:  d.Kernel,
			UUID:    uuid,
			Cmdline: cmdline,
		})
	}
	return entries
}

// Regenerate rebuilds the grub.d fragment inside deploymentPath from
// the given deployment set. It does not itself invoke update-grub;
// the chroot trailer command sequence that runs update-grub has
// already run by the time the transaction engine calls this.
func Regenerate(s *sys.System, deploymentPath string, deployments []deployment.Deployment, uuid, cmdline string) error {
	entries := EntriesFromDeployments(deployments, uuid, cmdline)
	return WriteFragment(s, deploymentPath, entries)
}
