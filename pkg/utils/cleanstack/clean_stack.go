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

// Package cleanstack provides a small helper to guarantee teardown of
// scoped resources (locks, mounts, staged snapshots) regardless of how
// many exit paths a transaction step takes.
package cleanstack

import "errors"

type jobKind int

const (
	always jobKind = iota
	errorOnly
	successOnly
)

// Job is a single queued cleanup callback.
type Job struct {
	run  func() error
	kind jobKind
}

// Run executes the job's callback.
func (j *Job) Run() error {
	return j.run()
}

// CleanStack is a LIFO stack of cleanup callbacks.
type CleanStack struct {
	jobs []*Job
}

func NewCleanStack() *CleanStack {
	return &CleanStack{}
}

// Push queues a callback that always runs on Cleanup.
func (c *CleanStack) Push(run func() error) {
	c.jobs = append(c.jobs, &Job{run: run, kind: always})
}

// PushErrorOnly queues a callback that only runs when Cleanup is
// called with a non-nil error, or a prior callback produced one.
func (c *CleanStack) PushErrorOnly(run func() error) {
	c.jobs = append(c.jobs, &Job{run: run, kind: errorOnly})
}

// PushSuccessOnly queues a callback that only runs while no error has
// been observed yet.
func (c *CleanStack) PushSuccessOnly(run func() error) {
	c.jobs = append(c.jobs, &Job{run: run, kind: successOnly})
}

// Pop removes and returns the most recently pushed job, or nil if empty.
func (c *CleanStack) Pop() *Job {
	if len(c.jobs) == 0 {
		return nil
	}
	last := len(c.jobs) - 1
	job := c.jobs[last]
	c.jobs = c.jobs[:last]
	return job
}

// Cleanup runs every queued job in reverse push order, selecting jobs
// by kind against the error state as it stands at the time each job is
// reached. It returns the original error joined with any cleanup
// failures.
func (c *CleanStack) Cleanup(err error) error {
	for {
		job := c.Pop()
		if job == nil {
			break
		}
		switch job.kind {
		case errorOnly:
			if err == nil {
				continue
			}
		case successOnly:
			if err != nil {
				continue
			}
		}
		if e := job.Run(); e != nil {
			err = errors.Join(err, e)
		}
	}
	return err
}
