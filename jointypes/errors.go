// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package jointypes holds the error taxonomy shared by every join
// operator: the planner, the physical joins, and the estimator all return
// one of these kinds rather than an ad-hoc error string, so callers can
// branch on Is(err) instead of parsing messages.
package jointypes

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrTypeMismatch is returned when the join columns are not
	// comparable types.
	ErrTypeMismatch = errors.NewKind("join column types are not compatible: %s vs %s")
	// ErrNullInput is returned when a required input table is missing.
	ErrNullInput = errors.NewKind("required input table is missing: %s")
	// ErrWrongShape is returned when fetch-join is invoked but neither
	// side has a suitable dense head.
	ErrWrongShape = errors.NewKind("fetch-join requires a dense head on one side")
	// ErrOutOfMemory is returned when allocation of an output, a hash
	// index, or a sample failed.
	ErrOutOfMemory = errors.NewKind("allocation failed for %s (%d rows)")
	// ErrMissInFetch is returned when hit_always was asserted but a row
	// had no match.
	ErrMissInFetch = errors.NewKind("hit_always asserted but row %d had no match")
	// ErrNotSorted is returned when merge-join is invoked with an
	// unsorted right head.
	ErrNotSorted = errors.NewKind("merge-join requires a sorted right head")
)
