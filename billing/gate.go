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


// Package billing decides whether an owner's plan allows another discovery
// run and which plan features apply to it.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
)

var (
	// ErrPlanRepositoryRequired indicates a nil plan repository was passed to NewGate.
	ErrPlanRepositoryRequired = errors.New("plan repository is required")

	// ErrUsageRepositoryRequired indicates a nil usage repository was passed to NewGate.
	ErrUsageRepositoryRequired = errors.New("usage repository is required")
)

// Entitlement is the plan state of one owner at the time of a check.
type Entitlement struct {
	Plan          core.Plan       `json:"plan"`
	Limits        core.PlanLimits `json:"limits"`
	RunsThisMonth int             `json:"runs_this_month"`
	// RunsRemaining is -1 for plans without a monthly limit.
	RunsRemaining int       `json:"runs_remaining"`
	PeriodStart   time.Time `json:"period_start"`
}

// Gate enforces plan quotas. Only completed runs count against the monthly
// limit; failed runs are logged but free.
type Gate struct {
	plans  storage.PlanRepository
	usage  storage.UsageRepository
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate) error

// WithClock sets the time source. Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) error {
		if now != nil {
			g.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger.With("component", "billing")
		return nil
	}
}

// NewGate creates a quota gate over the plan and usage repositories.
func NewGate(plans storage.PlanRepository, usage storage.UsageRepository, opts ...Option) (*Gate, error) {
	if plans == nil {
		return nil, ErrPlanRepositoryRequired
	}
	if usage == nil {
		return nil, ErrUsageRepositoryRequired
	}
	g := &Gate{
		plans:  plans,
		usage:  usage,
		now:    time.Now,
		logger: slog.Default().With("component", "billing"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Entitlement reports the owner's plan and usage without enforcing anything.
func (g *Gate) Entitlement(ctx context.Context, ownerID string) (*Entitlement, error) {
	plan, err := g.plans.GetPlan(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	start := PeriodStart(g.now())
	used, err := g.usage.CountUsage(ctx, ownerID, core.UsageOutcomeCompleted, start)
	if err != nil {
		return nil, fmt.Errorf("count usage: %w", err)
	}

	limits := plan.Limits()
	remaining := -1
	if limits.MonthlyRuns > 0 {
		remaining = max(limits.MonthlyRuns-used, 0)
	}
	return &Entitlement{
		Plan:          plan,
		Limits:        limits,
		RunsThisMonth: used,
		RunsRemaining: remaining,
		PeriodStart:   start,
	}, nil
}

// Check returns the owner's entitlement, or core.ErrQuotaExceeded when the
// plan allows no further run this period.
func (g *Gate) Check(ctx context.Context, ownerID string) (*Entitlement, error) {
	ent, err := g.Entitlement(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if ent.RunsRemaining == 0 {
		g.logger.Info("run quota exhausted", "owner", ownerID, "plan", ent.Plan, "used", ent.RunsThisMonth)
		return ent, fmt.Errorf("%w: %s plan allows %d runs per month", core.ErrQuotaExceeded, ent.Plan, ent.Limits.MonthlyRuns)
	}
	return ent, nil
}

// Admit re-reads the owner's entitlement once a run has been claimed and
// charges activeOthers, the owner's other claimed and unfinished runs, against
// the remaining quota. A run claims before it is admitted, so the last of any
// set of concurrent runs to be admitted sees every other claim and the set
// never exceeds the plan.
func (g *Gate) Admit(ctx context.Context, ownerID string, activeOthers int) (*Entitlement, error) {
	ent, err := g.Entitlement(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if ent.RunsRemaining >= 0 && ent.RunsRemaining-activeOthers <= 0 {
		g.logger.Info("run quota reserved by active runs", "owner", ownerID, "plan", ent.Plan,
			"used", ent.RunsThisMonth, "active", activeOthers)
		return ent, fmt.Errorf("%w: %s plan allows %d runs per month and %d are in progress",
			core.ErrQuotaExceeded, ent.Plan, ent.Limits.MonthlyRuns, activeOthers)
	}
	return ent, nil
}

// Require returns core.ErrFeatureNotInPlan unless allowed is true.
func Require(ent *Entitlement, feature string, allowed bool) error {
	if allowed {
		return nil
	}
	return fmt.Errorf("%w: %s requires a higher plan than %s", core.ErrFeatureNotInPlan, feature, ent.Plan)
}

// PeriodStart returns the first instant of t's calendar month in UTC.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
