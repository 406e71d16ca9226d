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


package mock

import "github.com/poiesic/leadhunt/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock query and rank completers.
type MockProvider struct {
	query *MockCompleter
	rank  *MockCompleter
}

// NewMockProvider creates a new mock provider whose completers reply with an
// empty JSON array.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockQuery()/GetMockRank() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		query: NewMockCompleter("[]"),
		rank:  NewMockCompleter("[]"),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock completers.
func NewMockProviderWithServices(query, rank *MockCompleter) ai.AIProvider {
	return &MockProvider{
		query: query,
		rank:  rank,
	}
}

// QueryCompleter returns the mock query completer.
func (p *MockProvider) QueryCompleter() ai.Completer {
	return p.query
}

// RankCompleter returns the mock rank completer.
func (p *MockProvider) RankCompleter() ai.Completer {
	return p.rank
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockQuery returns the underlying query completer for test assertions.
func (p *MockProvider) GetMockQuery() *MockCompleter {
	return p.query
}

// GetMockRank returns the underlying rank completer for test assertions.
func (p *MockProvider) GetMockRank() *MockCompleter {
	return p.rank
}
