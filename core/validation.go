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

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateProject validates a Project according to domain rules.
//
// Validation rules:
//   - OwnerID must not be empty
//   - Name must not be empty
//   - Description must not be empty
//
// NOT validated (populated by the discovery pipeline):
//   - DiscoveryResults, PossibleCompetitors, Queries
//   - ID (0 is valid before the project is stored)
func ValidateProject(project *Project) error {
	if project == nil {
		return fmt.Errorf("%w: project is nil", ErrInvalidProject)
	}

	if strings.TrimSpace(project.OwnerID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProject, ErrEmptyOwner)
	}

	if strings.TrimSpace(project.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProject, ErrEmptyName)
	}

	if strings.TrimSpace(project.Description) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProject, ErrEmptyDescription)
	}

	return nil
}

// IsAbsoluteHTTPURL reports whether raw is an absolute http or https URL with a host.
func IsAbsoluteHTTPURL(raw string) bool {
	if !strings.HasPrefix(raw, "http") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// CleanStrings trims every element, drops empties and removes duplicates
// while preserving order.
func CleanStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
