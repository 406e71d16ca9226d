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


// Package ai provides abstractions for the language-model services used by
// the discovery pipeline.
//
// The package defines two interfaces:
//
//   - Completer: sends one prompt and returns the model's text reply
//   - AIProvider: aggregates the query and rank completers, which run on
//     separately configured models and temperatures
//
// It also hosts the reply parsing helpers shared by the query generator and
// the relevance ranker: ExtractJSONArray locates a fenced or bare JSON array,
// DecodeJSONArray repairs and unmarshals it, and SplitLines is the textual
// list fallback.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs via langchaingo
//   - ai/gemini: the Gemini API via google.golang.org/genai
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, gemini.NewProvider) return
// INTERFACE types. Mock constructors return CONCRETE types so tests can inject
// behavior and assert on call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(key))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	reply, err := provider.RankCompleter().Complete(ctx, prompt)
//	var ranked []entry
//	err = ai.DecodeJSONArray(reply, &ranked)
package ai
