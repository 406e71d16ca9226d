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


// Package discovery runs the lead discovery pipeline for one project.
//
// A run moves through fixed stages:
//
//	pending -> generating-queries -> aggregating -> ranking -> persisting -> done
//
// with failed reachable from every stage. Before any stage runs the project
// is loaded by id and owner, the owner's plan quota is checked and the run is
// claimed on the project record, so a second concurrent run of the same
// project is rejected instead of racing the first one's write.
//
// Any fatal failure is returned as a *RunError carrying the stage and the
// failure kind. Once a run is claimed, failures are also persisted on the
// project so pollers see them.
package discovery
