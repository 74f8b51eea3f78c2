// Package digest builds the daily watchlist digest and posts it to the
// configured GitHub issue or webhook.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"swing-trader/internal/config"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// Builder assembles the five-section watchlist digest from store state.
type Builder struct {
	store        store.DataStore
	cfg          config.DigestConfig
	sectorCap    int
	staleBudget  time.Duration
	snapshotTime func() (time.Time, error) // nil when no snapshot is wired
}

// NewBuilder creates a digest builder.
func NewBuilder(s store.DataStore, cfg config.DigestConfig, sectorCap int, staleMinutes int) *Builder {
	return &Builder{
		store:       s,
		cfg:         cfg,
		sectorCap:   sectorCap,
		staleBudget: time.Duration(staleMinutes) * time.Minute,
	}
}

// SetSnapshotTimeFn wires the snapshot timestamp source used for the
// staleness banner.
func (b *Builder) SetSnapshotTimeFn(fn func() (time.Time, error)) {
	b.snapshotTime = fn
}

// Build renders the digest as markdown.
func (b *Builder) Build(ctx context.Context, now time.Time) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Daily Watchlist Digest %s\n\n", now.Format("2006-01-02"))

	if banner := b.stalenessBanner(now); banner != "" {
		sb.WriteString(banner)
	}

	if err := b.buyCandidates(ctx, &sb); err != nil {
		return "", err
	}
	if err := b.oversoldNotReady(ctx, &sb); err != nil {
		return "", err
	}
	if err := b.exits(ctx, &sb); err != nil {
		return "", err
	}
	if err := b.riskAndQuotas(ctx, &sb); err != nil {
		return "", err
	}
	if err := b.upcomingEarnings(ctx, &sb, now); err != nil {
		return "", err
	}

	return sb.String(), nil
}

func (b *Builder) stalenessBanner(now time.Time) string {
	if b.snapshotTime == nil {
		return ""
	}
	at, err := b.snapshotTime()
	if err != nil {
		return "> :warning: No snapshot found; data freshness unknown.\n\n"
	}
	age := now.Sub(at)
	if age > b.staleBudget {
		return fmt.Sprintf("> :warning: Snapshot is %d minutes old (budget %d). Numbers below may be stale.\n\n",
			int(age.Minutes()), int(b.staleBudget.Minutes()))
	}
	return ""
}

func (b *Builder) buyCandidates(ctx context.Context, sb *strings.Builder) error {
	entries, err := b.store.ListEntryWatchlist(ctx)
	if err != nil {
		return err
	}

	sb.WriteString("### Buy Candidates\n\n")
	if len(entries) == 0 {
		sb.WriteString("_None today._\n\n")
		return nil
	}

	max := b.cfg.MaxBuyCandidates
	if max <= 0 || max > len(entries) {
		max = len(entries)
	}

	sb.WriteString("| Symbol | Score | Entry Zone | Size | Shares | EarningsSafe |\n")
	sb.WriteString("|--------|-------|------------|------|--------|--------------|\n")
	for _, e := range entries[:max] {
		fmt.Fprintf(sb, "| %s | %.1f | %.2f–%.2f | $%s | %d | %v |\n",
			e.Symbol, e.BounceScore, e.EntryZoneLow, e.EntryZoneHigh, e.ProposedSize.StringFixed(0), e.ProposedShares, e.EarningsSafe)
	}
	sb.WriteString("\n")
	return nil
}

func (b *Builder) oversoldNotReady(ctx context.Context, sb *strings.Builder) error {
	candidates, err := b.store.ListCandidates(ctx, "")
	if err != nil {
		return err
	}

	sb.WriteString("### Oversold, Not Ready\n\n")
	wrote := false
	for _, c := range candidates {
		if c.Stage == models.StageEntryReady {
			continue
		}
		if !wrote {
			sb.WriteString("| Symbol | Stage | Missing | Score |\n")
			sb.WriteString("|--------|-------|---------|-------|\n")
			wrote = true
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %.1f |\n",
			c.Symbol, c.Stage, strings.Join(c.MissingSignals, ", "), c.BounceScore)
	}
	if !wrote {
		sb.WriteString("_Pipeline empty._\n")
	}
	sb.WriteString("\n")
	return nil
}

func (b *Builder) exits(ctx context.Context, sb *strings.Builder) error {
	signals, err := b.store.ListExitSignals(ctx)
	if err != nil {
		return err
	}

	sb.WriteString("### Exits\n\n")
	wrote := false
	for _, s := range signals {
		if s.Action == models.ActionHold {
			continue
		}
		if !wrote {
			sb.WriteString("| Symbol | Action | Triggers | Day | Return |\n")
			sb.WriteString("|--------|--------|----------|-----|--------|\n")
			wrote = true
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %d | %+.1f%% |\n",
			s.Symbol, s.Action, strings.Join(s.Triggers, ", "), s.DaysHeld, s.ReturnPct)
	}
	if !wrote {
		sb.WriteString("_Nothing actionable._\n")
	}
	sb.WriteString("\n")
	return nil
}

func (b *Builder) riskAndQuotas(ctx context.Context, sb *strings.Builder) error {
	sb.WriteString("### Risk & Quotas\n\n")

	state, err := b.store.GetRiskState(ctx)
	if err != nil {
		return err
	}
	if state != nil {
		fmt.Fprintf(sb, "- Equity: $%s\n", state.Equity.StringFixed(0))
		fmt.Fprintf(sb, "- 10-day drawdown: %+.1f%%\n", state.Drawdown10D)
		fmt.Fprintf(sb, "- Kill switch: **%s**\n", state.KillSwitch)
	} else {
		sb.WriteString("- No risk snapshot yet.\n")
	}

	budget, err := b.store.GetBudget(ctx, time.Now())
	if err != nil {
		return err
	}
	if budget != nil {
		fmt.Fprintf(sb, "- API budget: %d/%d used", budget.CallsUsed, budget.CallLimit)
		if budget.Fallback {
			sb.WriteString(" (fallback engaged)")
		}
		sb.WriteString("\n")
	}

	exposures, err := b.store.SectorExposure(ctx, b.sectorCap)
	if err != nil {
		return err
	}
	for i := range exposures {
		ex := &exposures[i]
		marker := ""
		if ex.Full() {
			marker = " FULL"
		}
		fmt.Fprintf(sb, "- %s: %d/%d%s\n", ex.Sector, ex.OpenCount, ex.Cap, marker)
	}

	sb.WriteString("\n")
	return nil
}

func (b *Builder) upcomingEarnings(ctx context.Context, sb *strings.Builder, now time.Time) error {
	horizon := b.cfg.EarningsHorizonDays
	if horizon <= 0 {
		horizon = 14
	}
	events, err := b.store.ListEarningsWithin(ctx, horizon)
	if err != nil {
		return err
	}

	fmt.Fprintf(sb, "### Upcoming Earnings (next %d days)\n\n", horizon)
	if len(events) == 0 {
		sb.WriteString("_None scheduled._\n")
		return nil
	}

	sb.WriteString("| Symbol | Date | Timing | Moved |\n")
	sb.WriteString("|--------|------|--------|-------|\n")
	for i := range events {
		ev := &events[i]
		moved := ""
		if ev.DeltaFlag {
			moved = "yes"
		}
		fmt.Fprintf(sb, "| %s | %s (%dd) | %s | %s |\n",
			ev.Symbol, ev.Date.Format("2006-01-02"), ev.DaysUntil(now), ev.Timing, moved)
	}
	return nil
}
