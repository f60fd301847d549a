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

// Package metadata persists the flat, string-keyed record every
// deployment carries alongside its subvolume (status, kernel version,
// creation time, and whatever else a caller stashes there), and the
// single pending-transaction marker that makes a crash mid-publish
// recoverable on next boot.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HackerOS-Linux-System/hammer/pkg/sys"
	"github.com/HackerOS-Linux-System/hammer/pkg/sys/vfs"
)

// FileName is the record file every deployment subvolume carries.
const FileName = "meta.json"

// Record is a flat string-keyed metadata record. It is intentionally
// untyped: callers read and write well-known keys (status, created,
// kernel...) but any key a future version adds round-trips untouched
// through readers that don't know about it yet.
type Record map[string]string

// Path returns the meta.json path for a deployment rooted at
// deploymentPath.
func Path(deploymentPath string) string {
	return filepath.Join(deploymentPath, FileName)
}

// Read loads the record at path. A missing file is not an error; it
// returns an empty record, since a freshly created subvolume has none yet.
func Read(s *sys.System, path string) (Record, error) {
	ok, err := vfs.Exists(s.FS(), path)
	if err != nil {
		return nil, fmt.Errorf("checking metadata file %s: %w", path, err)
	}
	if !ok {
		return Record{}, nil
	}

	data, err := s.FS().ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing metadata file %s: %w", path, err)
	}
	return rec, nil
}

// Write replaces the record at path wholesale.
func Write(s *sys.System, path string, rec Record) error {
	if err := vfs.MkdirAll(s.FS(), filepath.Dir(path), vfs.DirPerm); err != nil {
		return fmt.Errorf("preparing metadata directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", path, err)
	}
	if err := s.FS().WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing metadata file %s: %w", path, err)
	}
	return nil
}

// Update reads the record at path, merges updates into it key by key
// (an update never removes a key it doesn't mention), and writes the
// result back.
func Update(s *sys.System, path string, updates Record) error {
	rec, err := Read(s, path)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = Record{}
	}
	for k, v := range updates {
		rec[k] = v
	}
	return Write(s, path, rec)
}

// Well-known keys every deployment record may carry. A key omitted
// from a written record is simply absent from the file, not written
// as an empty string.
const (
	KeyCreated        = "created"
	KeyAction         = "action"
	KeyParent         = "parent"
	KeyKernel         = "kernel"
	KeySystemVersion  = "system_version"
	KeyStatus         = "status"
	KeyRollbackReason = "rollback_reason"
)

// WriteOpts carries the fields WriteNew assembles into a fresh record.
// Fields left at their zero value are omitted, matching "omitted-value
// keys are excluded" in the metadata record format.
type WriteOpts struct {
	Action         string
	Parent         string
	Kernel         string
	SystemVersion  string
	Status         string
	RollbackReason string
}

// WriteNew constructs and writes a fresh record for a deployment just
// staged: created is stamped from now, the rest comes from opts.
func WriteNew(s *sys.System, path string, now time.Time, opts WriteOpts) error {
	rec := Record{KeyCreated: now.UTC().Format(time.RFC3339)}
	set := func(key, value string) {
		if value != "" {
			rec[key] = value
		}
	}
	set(KeyAction, opts.Action)
	set(KeyParent, opts.Parent)
	set(KeyKernel, opts.Kernel)
	set(KeySystemVersion, opts.SystemVersion)
	set(KeyStatus, opts.Status)
	set(KeyRollbackReason, opts.RollbackReason)
	return Write(s, path, rec)
}

// SetStatusBooted marks the deployment at path booted.
func SetStatusBooted(s *sys.System, path string) error {
	return Update(s, path, Record{KeyStatus: "booted"})
}

// SetStatusBroken marks the deployment at path broken, with reason
// recorded for operator visibility.
func SetStatusBroken(s *sys.System, path, reason string) error {
	rec := Record{KeyStatus: "broken"}
	if reason != "" {
		rec[KeyRollbackReason] = reason
	}
	return Update(s, path, rec)
}

// SetStatusPrevious demotes the deployment at path from current,
// recording why: "manual" for an explicit switch/rollback, or left
// empty when a normal publish superseded it.
func SetStatusPrevious(s *sys.System, path, reason string) error {
	rec := Record{KeyStatus: "previous"}
	if reason != "" {
		rec[KeyRollbackReason] = reason
	}
	return Update(s, path, rec)
}

// pendingRecord is the on-disk shape of the pending-transaction
// marker: `{"deployment": "<basename>"}`.
type pendingRecord struct {
	Deployment string `json:"deployment"`
}

// WritePending records deploymentName (the deployment's full basename,
// e.g. "hammer-20250101120000") as the target of an in-flight
// transaction. It is written before the irreversible default-subvolume
// and symlink swap, and cleared only once that swap has committed, so
// a process killed mid-publish leaves evidence of what it was about to
// do. The write uses O_SYNC so the marker is durable before the caller
// proceeds to the irreversible step.
func WritePending(s *sys.System, markerPath, deploymentName string) error {
	if err := vfs.MkdirAll(s.FS(), filepath.Dir(markerPath), vfs.DirPerm); err != nil {
		return fmt.Errorf("preparing pending marker directory: %w", err)
	}
	data, err := json.Marshal(pendingRecord{Deployment: deploymentName})
	if err != nil {
		return fmt.Errorf("encoding pending marker: %w", err)
	}
	f, err := s.FS().OpenFile(markerPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_SYNC, 0644)
	if err != nil {
		return fmt.Errorf("writing pending marker %s: %w", markerPath, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing pending marker %s: %w", markerPath, err)
	}
	return nil
}

// ReadPending returns the deployment basename recorded by WritePending,
// or "" with no error if no transaction is pending.
func ReadPending(s *sys.System, markerPath string) (string, error) {
	ok, err := vfs.Exists(s.FS(), markerPath)
	if err != nil {
		return "", fmt.Errorf("checking pending marker %s: %w", markerPath, err)
	}
	if !ok {
		return "", nil
	}
	data, err := s.FS().ReadFile(markerPath)
	if err != nil {
		return "", fmt.Errorf("reading pending marker %s: %w", markerPath, err)
	}
	var rec pendingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("parsing pending marker %s: %w", markerPath, err)
	}
	return rec.Deployment, nil
}

// ClearPending removes the pending marker once a transaction has
// committed or been rolled back.
func ClearPending(s *sys.System, markerPath string) error {
	ok, err := vfs.Exists(s.FS(), markerPath)
	if err != nil {
		return fmt.Errorf("checking pending marker %s: %w", markerPath, err)
	}
	if !ok {
		return nil
	}
	if err := s.FS().Remove(markerPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing pending marker %s: %w", markerPath, err)
	}
	return nil
}
