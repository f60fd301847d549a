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

// Package transaction drives the prepare/commit/rollback sequence
// behind every mutating hammer operation: install, remove, deploy and
// update all snapshot the current deployment writably, mutate the
// snapshot under chroot, sanity-check it, and publish it as the new
// default only once every step has succeeded - or unwind entirely,
// leaving the prior current deployment untouched, if any step fails.
package transaction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HackerOS-Linux-System/hammer/pkg/bootloader"
	"github.com/HackerOS-Linux-System/hammer/pkg/btrfs"
	"github.com/HackerOS-Linux-System/hammer/pkg/deployment"
	"github.com/HackerOS-Linux-System/hammer/pkg/lock"
	"github.com/HackerOS-Linux-System/hammer/pkg/metadata"
	"github.com/HackerOS-Linux-System/hammer/pkg/pkgmanager"
	"github.com/HackerOS-Linux-System/hammer/pkg/retention"
	"github.com/HackerOS-Linux-System/hammer/pkg/sanity"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
	"github.com/HackerOS-Linux-System/hammer/pkg/utils/cleanstack"
)

// ErrConcurrentOperation is returned when another hammer process
// already holds the system-wide lock.
var ErrConcurrentOperation = lock.ErrLocked

// ErrValidationFailed is returned when the system does not satisfy the
// invariants a mutating operation depends on: a `current` symlink must
// exist and point at a deployment whose metadata status is ready or
// booted.
var ErrValidationFailed = errors.New("validation failed")

// ErrMetadataError wraps a metadata record that is missing or
// unparseable where the engine needed it to make a decision.
var ErrMetadataError = errors.New("metadata error")

// Engine drives the lifecycle of deployments against the system at s.
type Engine struct {
	s       *sys.System
	cmdline string
}

// Opt configures an Engine.
type Opt func(*Engine)

// WithKernelCmdline sets the extra kernel command line arguments baked
// into every bootloader menu entry this engine regenerates.
func WithKernelCmdline(cmdline string) Opt {
	return func(e *Engine) { e.cmdline = cmdline }
}

func New(s *sys.System, opts ...Opt) *Engine {
	e := &Engine{s: s}
	for _, o := range opts {
		o(e)
	}
	return e
}

// timeNow is a seam so tests can pin the clock; production code never
// overrides it.
var timeNow = time.Now

// List reads every deployment's metadata from DeploymentsDir, newest
// first.
func (e *Engine) List() ([]deployment.Deployment, error) {
	entries, err := e.s.FS().ReadDir(deployment.DeploymentsDir)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing deployments: %w", err)
	}

	var deployments []deployment.Deployment
	for _, entry := range entries {
		id := trimIDPrefix(entry.Name())
		d := deployment.Deployment{ID: id}
		rec, err := metadata.Read(e.s, metadata.Path(d.Path()))
		if err != nil {
			return nil, fmt.Errorf("%w: reading metadata for %s: %s", ErrMetadataError, id, err)
		}
		applyRecord(&d, rec)
		deployments = append(deployments, d)
	}
	deployment.SortByCreatedDesc(deployments)
	return deployments, nil
}

func applyRecord(d *deployment.Deployment, rec metadata.Record) {
	if status, ok := rec[metadata.KeyStatus]; ok {
		d.Status, _ = deployment.ParseStatus(status)
	}
	if created, ok := rec[metadata.KeyCreated]; ok {
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			d.Created = t
		}
	}
	d.Action = rec[metadata.KeyAction]
	d.Parent = rec[metadata.KeyParent]
	d.Kernel = rec[metadata.KeyKernel]
	d.SystemVersion = rec[metadata.KeySystemVersion]
	d.RollbackReason = rec[metadata.KeyRollbackReason]
}

// currentDeploymentID resolves the `current` symlink to a deployment
// ID. hasCurrent is false on a system with no committed transaction
// yet.
func (e *Engine) currentDeploymentID() (id string, hasCurrent bool, err error) {
	ok, err := vfs.Exists(e.s.FS(), deployment.CurrentLink)
	if err != nil {
		return "", false, fmt.Errorf("checking current symlink: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	target, err := e.s.FS().Readlink(deployment.CurrentLink)
	if err != nil {
		return "", false, fmt.Errorf("reading current symlink: %w", err)
	}
	return trimIDPrefix(filepath.Base(target)), true, nil
}

// Validate checks the invariants a mutating operation depends on:
// exactly one current deployment must exist, with metadata whose status
// is ready or booted. Those statuses stand in for read-only: the
// subvolume's btrfs ro property itself is not inspected.
func (e *Engine) Validate() (current deployment.Deployment, err error) {
	id, hasCurrent, err := e.currentDeploymentID()
	if err != nil {
		return current, err
	}
	if !hasCurrent {
		return current, fmt.Errorf("%w: no current deployment symlink found", ErrValidationFailed)
	}
	current.ID = id
	rec, err := metadata.Read(e.s, metadata.Path(current.Path()))
	if err != nil {
		return current, fmt.Errorf("%w: reading metadata for current deployment %s: %s", ErrValidationFailed, id, err)
	}
	if len(rec) == 0 {
		return current, fmt.Errorf("%w: current deployment %s has no metadata", ErrValidationFailed, id)
	}
	applyRecord(&current, rec)
	if current.Status != deployment.StatusBooted && current.Status != deployment.StatusReady {
		return current, fmt.Errorf("%w: current deployment %s is not read-only (status %s)", ErrValidationFailed, id, current.Status)
	}
	return current, nil
}

// swapCurrentLink atomically retargets the `current` symlink by
// creating a new symlink alongside it and renaming over the old one,
// so there is never a window with no symlink present at all.
func (e *Engine) swapCurrentLink(target string) error {
	tmp := deployment.CurrentLink + ".tmp"
	_ = e.s.FS().Remove(tmp)
	if err := e.s.FS().Symlink(target, tmp); err != nil {
		return fmt.Errorf("staging symlink: %w", err)
	}
	if err := e.s.FS().Rename(tmp, deployment.CurrentLink); err != nil {
		return fmt.Errorf("renaming symlink into place: %w", err)
	}
	return nil
}

func (e *Engine) uuid() string {
	uuid, err := btrfs.GetUUID(e.s, deployment.Root)
	if err != nil {
		e.s.Logger().Warn("discovering filesystem uuid: %s", err)
		return ""
	}
	return uuid
}

// mutate drives the full 17-step prepare/commit sequence shared by
// install, remove, deploy and update: it acquires the lock, snapshots
// current writably, lets op mutate the staged deployment under chroot,
// sanity-checks and publishes the result, and unwinds everything back
// to the untouched prior current on any failure along the way.
//
// op is handed the staged deployment's path and must run whatever
// package-manager command sequence the action requires (the pkgmanager
// functions set up the chroot binds themselves); kernel/system-version
// detection, sanity checks, bootloader regeneration and publish are
// all handled here.
func (e *Engine) mutate(action string, op func(stagedPath string) error) (published deployment.Deployment, err error) {
	err = lock.Do(e.s, deployment.LockFile, func() (txErr error) {
		current, verr := e.Validate()
		if verr != nil {
			return verr
		}

		now := timeNow()
		existing, eerr := e.existingIDs()
		if eerr != nil {
			return eerr
		}
		id, iderr := deployment.NewID(now, existing)
		if iderr != nil {
			return iderr
		}
		staged := deployment.Deployment{ID: id, Created: now, Status: deployment.StatusReady, Action: action, Parent: current.Name()}

		if cerr := btrfs.CreateSnapshot(e.s, staged.Path(), current.Path(), true); cerr != nil {
			return fmt.Errorf("staging deployment %s: %w", id, cerr)
		}

		cleanup := cleanstack.NewCleanStack()
		defer func() {
			if txErr != nil {
				cleanup.PushErrorOnly(func() error {
					if merr := metadata.SetStatusBroken(e.s, metadata.Path(staged.Path()), "transaction aborted: "+txErr.Error()); merr != nil {
						e.s.Logger().Error("marking %s broken: %s", staged.ID, merr)
					}
					return nil
				})
			}
			txErr = cleanup.Cleanup(txErr)
		}()

		if werr := metadata.WritePending(e.s, deployment.PendingMarker, staged.Name()); werr != nil {
			return fmt.Errorf("recording pending transaction: %w", werr)
		}

		if werr := metadata.WriteNew(e.s, metadata.Path(staged.Path()), now, metadata.WriteOpts{
			Action: action,
			Parent: staged.Parent,
			Status: deployment.StatusReady.String(),
		}); werr != nil {
			return fmt.Errorf("writing metadata for %s: %w", id, werr)
		}

		if operr := op(staged.Path()); operr != nil {
			return operr
		}

		kernel, kerr := pkgmanager.DetectKernel(e.s, staged.Path())
		if kerr != nil {
			return fmt.Errorf("detecting kernel for %s: %w", id, kerr)
		}
		staged.Kernel = kernel

		sysVersion, sverr := pkgmanager.SystemVersion(e.s, staged.Path())
		if sverr != nil {
			return fmt.Errorf("computing system version for %s: %w", id, sverr)
		}
		staged.SystemVersion = sysVersion

		if serr := sanity.Check(e.s, staged.Path(), kernel); serr != nil {
			return serr
		}

		if werr := metadata.Update(e.s, metadata.Path(staged.Path()), metadata.Record{
			metadata.KeyKernel:        kernel,
			metadata.KeySystemVersion: sysVersion,
			metadata.KeyStatus:        deployment.StatusReady.String(),
		}); werr != nil {
			return fmt.Errorf("%w: recording kernel/system_version for %s: %s", ErrMetadataError, id, werr)
		}

		deployments, lerr := e.List()
		if lerr != nil {
			return fmt.Errorf("listing deployments for bootloader regeneration: %w", lerr)
		}
		// staged is not yet on disk with its final metadata in the listing
		// snapshot above in the common case of a first-ever deployment;
		// its own record is current, so folding it in by ID keeps the
		// fragment consistent even then.
		deployments = upsert(deployments, staged)
		if berr := bootloader.Regenerate(e.s, staged.Path(), deployments, e.uuid(), e.cmdline); berr != nil {
			return fmt.Errorf("regenerating bootloader menu: %w", berr)
		}

		if serr := btrfs.SetReadOnly(e.s, staged.Path(), true); serr != nil {
			return fmt.Errorf("sealing %s read-only: %w", id, serr)
		}

		if serr := btrfs.SetDefaultSubvolume(e.s, staged.Path()); serr != nil {
			return fmt.Errorf("setting default subvolume to %s: %w", id, serr)
		}
		if serr := e.swapCurrentLink(staged.Path()); serr != nil {
			return fmt.Errorf("swapping current symlink to %s: %w", id, serr)
		}

		if werr := metadata.ClearPending(e.s, deployment.PendingMarker); werr != nil {
			return fmt.Errorf("clearing pending marker: %w", werr)
		}

		// current is still the running system until the next reboot
		// actually boots staged - its status stays whatever it was
		// (normally booted). The pending marker is cleared above, so
		// CheckTransaction on the next boot finds no marker and neither
		// confirms staged nor demotes current.
		staged.Status = deployment.StatusReady
		published = staged
		return nil
	})
	return published, err
}

// existingIDs lists the deployment IDs already present, for NewID
// collision avoidance.
func (e *Engine) existingIDs() (map[string]bool, error) {
	entries, err := e.s.FS().ReadDir(deployment.DeploymentsDir)
	if err != nil {
		if isNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("listing deployments: %w", err)
	}
	ids := map[string]bool{}
	for _, entry := range entries {
		ids[trimIDPrefix(entry.Name())] = true
	}
	return ids, nil
}

func upsert(deployments []deployment.Deployment, d deployment.Deployment) []deployment.Deployment {
	for i, existing := range deployments {
		if existing.ID == d.ID {
			deployments[i] = d
			return deployments
		}
	}
	return append(deployments, d)
}

// Install stages a new deployment snapshotted from current, installs
// pkg inside it, and publishes it. The --container install path never
// reaches the engine: the CLI hands it to the container tool instead.
func (e *Engine) Install(pkg string) (deployment.Deployment, error) {
	return e.mutate("install "+pkg, func(stagedPath string) error {
		return pkgmanager.Install(e.s, stagedPath, pkg)
	})
}

// Remove stages a new deployment snapshotted from current, removes
// pkg inside it, and publishes it.
func (e *Engine) Remove(pkg string) (deployment.Deployment, error) {
	return e.mutate("remove "+pkg, func(stagedPath string) error {
		return pkgmanager.Remove(e.s, stagedPath, pkg)
	})
}

// Update stages a new deployment snapshotted from current, upgrades
// every package inside it, and publishes it.
func (e *Engine) Update() (deployment.Deployment, error) {
	return e.mutate("update", func(stagedPath string) error {
		return pkgmanager.Update(e.s, stagedPath)
	})
}

// Deploy rebuilds current as a new deployment without changing its
// package set - just the trailer command sequence (initramfs and
// bootloader refresh) against an unmodified snapshot.
func (e *Engine) Deploy() (deployment.Deployment, error) {
	return e.mutate("deploy", func(stagedPath string) error {
		return pkgmanager.Deploy(e.s, stagedPath)
	})
}

// Switch makes target the default deployment without staging anything
// new: the engine sets its subvolume as default, atomically retargets
// the current symlink, and demotes the outgoing current to "previous"
// with the given rollback reason.
func (e *Engine) Switch(target deployment.Deployment, reason string) error {
	return lock.Do(e.s, deployment.LockFile, func() error {
		ok, err := vfs.Exists(e.s.FS(), target.Path())
		if err != nil {
			return fmt.Errorf("checking target deployment %s: %w", target.ID, err)
		}
		if !ok {
			return fmt.Errorf("%w: deployment %s does not exist", ErrValidationFailed, target.ID)
		}

		outgoingID, hasOutgoing, err := e.currentDeploymentID()
		if err != nil {
			return err
		}

		if err := btrfs.SetDefaultSubvolume(e.s, target.Path()); err != nil {
			return fmt.Errorf("setting default subvolume to %s: %w", target.ID, err)
		}
		if err := e.swapCurrentLink(target.Path()); err != nil {
			return fmt.Errorf("swapping current symlink to %s: %w", target.ID, err)
		}
		if err := metadata.SetStatusBooted(e.s, metadata.Path(target.Path())); err != nil {
			return fmt.Errorf("%w: marking %s booted: %s", ErrMetadataError, target.ID, err)
		}
		if hasOutgoing && outgoingID != target.ID {
			outgoing := deployment.Deployment{ID: outgoingID}
			if err := metadata.SetStatusPrevious(e.s, metadata.Path(outgoing.Path()), reason); err != nil {
				e.s.Logger().Warn("demoting previous deployment %s: %s", outgoingID, err)
			}
		}
		return nil
	})
}

// Rollback switches to the Nth-newest deployment other than current
// (N>=1), the target of `hammer rollback [n]`.
func (e *Engine) Rollback(n int) (deployment.Deployment, error) {
	if n < 1 {
		n = 1
	}
	deployments, err := e.List()
	if err != nil {
		return deployment.Deployment{}, err
	}
	currentID, hasCurrent, err := e.currentDeploymentID()
	if err != nil {
		return deployment.Deployment{}, err
	}

	var candidates []deployment.Deployment
	for _, d := range deployments {
		if hasCurrent && d.ID == currentID {
			continue
		}
		candidates = append(candidates, d)
	}
	if len(candidates) < n {
		return deployment.Deployment{}, fmt.Errorf("%w: rollback %d requires at least %d deployments besides current, found %d", ErrValidationFailed, n, n, len(candidates))
	}
	target := candidates[n-1]
	if err := e.Switch(target, "manual"); err != nil {
		return deployment.Deployment{}, err
	}
	return target, nil
}

// SwitchByName resolves name to a deployment and switches to it, the
// target of `hammer switch <name>`.
func (e *Engine) SwitchByName(name string) (deployment.Deployment, error) {
	target := deployment.Deployment{ID: trimIDPrefix(name)}
	if err := e.Switch(target, "manual"); err != nil {
		return deployment.Deployment{}, err
	}
	return target, nil
}

// CheckTransaction reconciles a pending marker left over from a
// previous run, on every boot. Three outcomes are possible: no marker
// (nothing to do); the marker's deployment is now current (the publish
// completed, just clear the marker and confirm it booted); or it is
// not current (the process died before the symlink swap, or the
// bootloader fell back to a previous entry), in which case the staged
// deployment is marked broken.
func (e *Engine) CheckTransaction() error {
	pending, err := metadata.ReadPending(e.s, deployment.PendingMarker)
	if err != nil {
		return fmt.Errorf("reading pending marker: %w", err)
	}
	if pending == "" {
		return nil
	}
	pendingID := trimIDPrefix(pending)

	currentID, hasCurrent, err := e.currentDeploymentID()
	if err != nil {
		return err
	}

	defer func() {
		if cerr := metadata.ClearPending(e.s, deployment.PendingMarker); cerr != nil {
			e.s.Logger().Error("clearing pending marker: %s", cerr)
		}
	}()

	pendingDeployment := deployment.Deployment{ID: pendingID}
	if hasCurrent && currentID == pendingID {
		if berr := metadata.SetStatusBooted(e.s, metadata.Path(pendingDeployment.Path())); berr != nil {
			return berr
		}
		return e.demotePredecessor(pendingDeployment)
	}
	return metadata.SetStatusBroken(e.s, metadata.Path(pendingDeployment.Path()), "first-boot confirmation failed: booted a fallback deployment")
}

// demotePredecessor marks booted's parent deployment previous, now that
// booted has been confirmed as the running system. This is the
// "previous on switch" transition, deferred until first-boot
// confirmation rather than applied the moment a transaction publishes
// - the outgoing deployment is still the running system until then.
func (e *Engine) demotePredecessor(booted deployment.Deployment) error {
	rec, err := metadata.Read(e.s, metadata.Path(booted.Path()))
	if err != nil {
		return fmt.Errorf("reading metadata for %s: %w", booted.ID, err)
	}
	parent := rec[metadata.KeyParent]
	if parent == "" {
		return nil
	}
	parentDeployment := deployment.Deployment{ID: trimIDPrefix(parent)}
	ok, err := vfs.Exists(e.s.FS(), parentDeployment.Path())
	if err != nil {
		return fmt.Errorf("checking predecessor deployment %s: %w", parentDeployment.ID, err)
	}
	if !ok {
		return nil
	}
	if err := metadata.SetStatusPrevious(e.s, metadata.Path(parentDeployment.Path()), ""); err != nil {
		e.s.Logger().Warn("demoting previous deployment %s: %s", parentDeployment.ID, err)
	}
	return nil
}

// Clean prunes deployments beyond the retention window. It only ever
// runs on an explicit `hammer clean` invocation, never automatically
// after a transaction: a freshly published deployment should survive
// to be inspected even if it pushes the history past the keep count.
func (e *Engine) Clean() error {
	return lock.Do(e.s, deployment.LockFile, func() error {
		deployments, err := e.List()
		if err != nil {
			return err
		}
		currentID, hasCurrent, err := e.currentDeploymentID()
		if err != nil {
			return err
		}
		if !hasCurrent {
			return fmt.Errorf("%w: no current deployment to anchor retention against", ErrValidationFailed)
		}
		return retention.Apply(e.s, deployments, currentID)
	})
}

func trimIDPrefix(name string) string {
	if len(name) > len(deployment.IDPrefix) && name[:len(deployment.IDPrefix)] == deployment.IDPrefix {
		return name[len(deployment.IDPrefix):]
	}
	return name
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}
