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


// Package rank orders candidate discussions by relevance to a product using a
// language model.
//
// The model's reply is never trusted as is: entries with URLs that are not
// absolute, that repeat, or that were not among the candidates are dropped,
// the site tag is taken from the candidate, and the remaining entries are
// balanced across sources and renumbered from 1.
package rank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/leadhunt/ai"
	"github.com/poiesic/leadhunt/core"
)

const (
	// DefaultInputCap is the maximum number of candidates put into one prompt.
	DefaultInputCap = 50

	// DefaultTopN is the maximum number of ranked results returned.
	DefaultTopN = 50
)

var (
	// ErrNoCandidates is returned when Rank is called with nothing to rank.
	ErrNoCandidates = errors.New("no candidates to rank")

	// ErrCompleterRequired is returned when a ranker is created without a completer.
	ErrCompleterRequired = errors.New("completer required")

	// ErrInvalidLimit is returned when InputCap or TopN is not positive.
	ErrInvalidLimit = errors.New("limit must be greater than 0")
)

// Ranker asks a language model to pick and order the most relevant candidates.
type Ranker struct {
	completer ai.Completer
	inputCap  int
	topN      int
	logger    *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithInputCap sets how many candidates are sent to the model.
// Default is DefaultInputCap.
func WithInputCap(n int) Option {
	return func(r *Ranker) error {
		if n < 1 {
			return ErrInvalidLimit
		}
		r.inputCap = n
		return nil
	}
}

// WithTopN sets the maximum number of ranked results.
// Default is DefaultTopN.
func WithTopN(n int) Option {
	return func(r *Ranker) error {
		if n < 1 {
			return ErrInvalidLimit
		}
		r.topN = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New creates a ranker backed by completer.
func New(completer ai.Completer, opts ...Option) (*Ranker, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	r := &Ranker{
		completer: completer,
		inputCap:  DefaultInputCap,
		topN:      DefaultTopN,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "ranker")
	return r, nil
}

// InputCap returns the maximum number of candidates sent to the model.
func (r *Ranker) InputCap() int {
	return r.inputCap
}

// rankedEntry is one element of the model's reply.
type rankedEntry struct {
	Ranking flexInt `json:"ranking"`
	Site    string  `json:"site"`
	URL     string  `json:"url"`
}

// flexInt accepts JSON numbers and numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

// Rank returns at most TopN results chosen from candidates, ranked 1..n.
// Candidates beyond InputCap are ignored. Completion failures wrap
// core.ErrUpstreamUnavailable, unparseable replies core.ErrMalformedResponse.
func (r *Ranker) Rank(ctx context.Context, candidates []core.SearchResult, product core.ProductContext, targetProfiles []string) ([]core.RankedResult, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if len(candidates) > r.inputCap {
		candidates = candidates[:r.inputCap]
	}

	prompt, err := buildPrompt(candidates, product, targetProfiles, r.topN)
	if err != nil {
		return nil, err
	}

	reply, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		r.logger.Error("ranking completion failed", "err", err)
		if errors.Is(err, core.ErrUpstreamUnavailable) || errors.Is(err, core.ErrMalformedResponse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrUpstreamUnavailable, err)
	}

	var entries []rankedEntry
	if err := ai.DecodeJSONArray(reply, &entries); err != nil {
		r.logger.Warn("error parsing ranking response", "response", reply, "err", err)
		return nil, err
	}

	ranked := validate(entries, candidates)
	sortByRanking(ranked)
	ranked = balance(ranked, r.topN)
	renumber(ranked)

	r.logger.Debug("ranking complete", "candidates", len(candidates), "returned", len(entries), "kept", len(ranked))
	return ranked, nil
}

// validate drops entries that are not absolute URLs, repeat an earlier URL or
// were not among the candidates. The site is corrected to the candidate's source.
func validate(entries []rankedEntry, candidates []core.SearchResult) []core.RankedResult {
	bySource := make(map[string]core.Source, len(candidates))
	for _, c := range candidates {
		if _, ok := bySource[c.URL]; !ok {
			bySource[c.URL] = c.Source
		}
	}

	seen := make(map[string]struct{}, len(entries))
	out := make([]core.RankedResult, 0, len(entries))
	for _, e := range entries {
		u := strings.TrimSpace(e.URL)
		if !core.IsAbsoluteHTTPURL(u) {
			continue
		}
		source, ok := bySource[u]
		if !ok {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, core.RankedResult{Ranking: int(e.Ranking), Site: source, URL: u})
	}
	return out
}
