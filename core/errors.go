// Copyright 2025 Poiesic Systems
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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidProject indicates a Project failed validation.
	ErrInvalidProject = errors.New("invalid project")

	// ErrEmptyName indicates the project Name field is empty.
	ErrEmptyName = errors.New("project name cannot be empty")

	// ErrEmptyDescription indicates the project Description field is empty.
	ErrEmptyDescription = errors.New("project description cannot be empty")

	// ErrEmptyOwner indicates the project has no owning user.
	ErrEmptyOwner = errors.New("project owner cannot be empty")

	// ErrInvalidURL indicates a URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("url must be an absolute http(s) url")

	// ErrInvalidPlan indicates an unknown plan name.
	ErrInvalidPlan = errors.New("invalid plan")
)

// Discovery failure kinds. Every fatal pipeline error wraps exactly one of these.
var (
	// ErrUpstreamUnavailable indicates a completion or search service failed
	// at the transport or HTTP level.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse indicates a completion response did not contain
	// the expected structured block or the block failed to parse.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNotFound indicates the record does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded indicates the caller's plan does not allow another run.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrNoQueries indicates query generation produced nothing to search for.
	ErrNoQueries = errors.New("no queries generated")

	// ErrNoResults indicates aggregation produced nothing to rank.
	ErrNoResults = errors.New("no search results")

	// ErrRunInProgress indicates another run of the same project is active.
	ErrRunInProgress = errors.New("discovery run already in progress")

	// ErrFeatureNotInPlan indicates the caller's plan does not include a feature.
	ErrFeatureNotInPlan = errors.New("feature not included in plan")
)

// ErrorKind is the machine-readable category of a failure, surfaced to callers.
type ErrorKind string

const (
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindNotFound            ErrorKind = "not_found"
	KindQuotaExceeded       ErrorKind = "quota_exceeded"
	KindNoQueries           ErrorKind = "no_queries"
	KindNoResults           ErrorKind = "no_results"
	KindRunInProgress       ErrorKind = "run_in_progress"
	KindFeatureNotInPlan    ErrorKind = "feature_not_in_plan"
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindInternal            ErrorKind = "internal"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrQuotaExceeded, KindQuotaExceeded},
	{ErrRunInProgress, KindRunInProgress},
	{ErrNotFound, KindNotFound},
	{ErrMalformedResponse, KindMalformedResponse},
	{ErrUpstreamUnavailable, KindUpstreamUnavailable},
	{ErrNoQueries, KindNoQueries},
	{ErrNoResults, KindNoResults},
	{ErrFeatureNotInPlan, KindFeatureNotInPlan},
	{ErrInvalidProject, KindInvalidRequest},
	{ErrInvalidURL, KindInvalidRequest},
	{ErrInvalidPlan, KindInvalidRequest},
}

// KindOf maps an error onto the failure taxonomy.
// Errors that wrap none of the known sentinels are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindInternal
}
