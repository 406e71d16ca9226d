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


// Package search fetches candidate discussions from public forums.
//
// Each forum is reached through an Adapter that turns one free-text query into
// normalized core.SearchResult records. Adapters never fail: transport errors,
// non-success statuses and undecodable bodies are logged and yield an empty
// slice, so one broken provider cannot abort a discovery run.
//
// Available adapters:
//   - RedditAdapter: the public Reddit search JSON endpoint
//   - SerperAdapter: Google results restricted to one site via the Serper API
//   - DuckDuckGoAdapter: keyless site-restricted fallback scraping DuckDuckGo HTML
//   - HackerNewsAdapter: the hnrss.org search feed
//
// The Aggregator fans queries out to every adapter over a bounded worker pool,
// concatenates the results in (query, adapter) order and deduplicates them by URL.
package search
