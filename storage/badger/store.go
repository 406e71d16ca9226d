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


package badger

import (
	"errors"

	"github.com/poiesic/leadhunt/storage"
)

// Store bundles the BadgerDB repositories over one Backend.
type Store struct {
	backend  *Backend
	projects *ProjectRepository
	usage    *UsageRepository
	plans    *PlanRepository
}

var _ storage.Store = (*Store)(nil)

// Open opens a persistent store in the directory at path.
func Open(path string) (storage.Store, error) {
	s, err := openStore(path, false)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (storage.Store, error) {
	s, err := openStore("", true)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openStore(path string, inMemory bool) (*Store, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	projects, err := NewProjectRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &Store{
		backend:  backend,
		projects: projects,
		usage:    NewUsageRepository(backend),
		plans:    NewPlanRepository(backend),
	}, nil
}

func (s *Store) Projects() storage.ProjectRepository { return s.projects }
func (s *Store) Usage() storage.UsageRepository      { return s.usage }
func (s *Store) Plans() storage.PlanRepository       { return s.plans }

// Close releases the repositories, then the backend.
func (s *Store) Close() error {
	if s == nil || s.backend == nil || s.backend.IsClosed() {
		return nil
	}
	return errors.Join(
		s.projects.Close(),
		s.usage.Close(),
		s.plans.Close(),
		s.backend.Close(),
	)
}
