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


// Package storage provides the storage abstraction layer for leadhunt.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Three backends implement them:
//
//   - storage/badger: embedded BadgerDB, the default for single-node deployments
//   - storage/sqlite: a single SQLite file through modernc.org/sqlite (no cgo)
//   - storage/postgres: PostgreSQL through pgx connection pools
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.Store interface to enforce abstraction:
//
//	store, err := badger.Open(path)  // returns storage.Store
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Ownership
//
// Every project operation takes the owner's ID along with the project ID and
// filters on both. A write that matches no row returns ErrNotFound, which
// wraps core.ErrNotFound, so callers treat "not yours" and "does not exist"
// alike.
//
// # Serialization
//
// Projects and usage events are stored as JSON using the same field names the
// HTTP API exposes, so stored result lists keep their {ranking, site, url} and
// {site, title, url, summary} shapes across backends.
package storage
