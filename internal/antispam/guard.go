// Package antispam admits or rejects inbound commands with per-user
// sliding-window counters and temporary blocks.
package antispam

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Class is the rate-limit class of an inbound command.
type Class int

const (
	ClassGeneral Class = iota
	ClassVPN
)

// Verdict is the outcome of an admission check.
type Verdict int

const (
	// Allow lets the request through silently.
	Allow Verdict = iota
	// Warn lets the request through but carries a warning to send.
	Warn
	// Block rejects the request.
	Block
)

// Decision is the guard's answer for one inbound command.
type Decision struct {
	Verdict Verdict
	// Message is the user-facing text for Warn and Block verdicts.
	Message string
	// Retry is the remaining block time, set on Block.
	Retry time.Duration
}

// Limit is a sliding-window bound: at most Max requests inside Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Config holds the guard's limits and timings.
type Config struct {
	VPN        Limit
	General    Limit
	BlockFor   time.Duration
	SweepEvery time.Duration
}

// DefaultConfig returns the production limits: 3 /vpn requests per 30s,
// 10 other commands per 60s, 5-minute blocks, 10-second sweep.
func DefaultConfig() Config {
	return Config{
		VPN:        Limit{Max: 3, Window: 30 * time.Second},
		General:    Limit{Max: 10, Window: 60 * time.Second},
		BlockFor:   5 * time.Minute,
		SweepEvery: 10 * time.Second,
	}
}

// Bypass reports whether a user skips rate limiting entirely.
type Bypass interface {
	Has(userID int64) bool
}

type userWindow struct {
	vpn          []time.Time
	general      []time.Time
	blockedUntil time.Time
}

// Guard is the per-user admission gate in front of every inbound command.
type Guard struct {
	cfg    Config
	bypass Bypass
	log    *zap.Logger

	mu    sync.Mutex
	users map[int64]*userWindow
	now   func() time.Time
}

// NewGuard builds a Guard. bypass may be nil to disable the admin bypass.
func NewGuard(cfg Config, bypass Bypass, log *zap.Logger) *Guard {
	return &Guard{
		cfg:    cfg,
		bypass: bypass,
		log:    log,
		users:  make(map[int64]*userWindow),
		now:    time.Now,
	}
}

// Admit records an inbound command of the given class and decides its fate.
// Blocked users are rejected without the request being recorded.
func (g *Guard) Admit(userID int64, class Class) Decision {
	if g.bypass != nil && g.bypass.Has(userID) {
		return Decision{Verdict: Allow}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	u := g.users[userID]
	if u == nil {
		u = &userWindow{}
		g.users[userID] = u
	}

	if u.blockedUntil.After(now) {
		remaining := u.blockedUntil.Sub(now)
		mins := int(math.Ceil(remaining.Minutes()))
		plural := ""
		if mins > 1 {
			plural = "s"
		}
		g.log.Warn("blocked user rejected",
			zap.Int64("user_id", userID),
			zap.Time("blocked_until", u.blockedUntil))
		return Decision{
			Verdict: Block,
			Message: fmt.Sprintf("🚫 You're temporarily blocked for spamming. Try again in %d minute%s.", mins, plural),
			Retry:   remaining,
		}
	}

	limit := g.cfg.General
	seq := &u.general
	label := "commands"
	if class == ClassVPN {
		limit = g.cfg.VPN
		seq = &u.vpn
		label = "/vpn"
	}

	*seq = append(*seq, now)
	*seq = prune(*seq, now, limit.Window)

	switch n := len(*seq); {
	case n > limit.Max:
		u.blockedUntil = now.Add(g.cfg.BlockFor)
		g.log.Warn("user exceeded limit",
			zap.Int64("user_id", userID),
			zap.Int("limit", limit.Max),
			zap.Duration("window", limit.Window),
			zap.Time("blocked_until", u.blockedUntil))
		return Decision{
			Verdict: Block,
			Message: fmt.Sprintf("🚫 Slow down! You've sent too many %s. You're blocked for %d minutes.", label, int(g.cfg.BlockFor.Minutes())),
			Retry:   g.cfg.BlockFor,
		}
	case n == limit.Max:
		g.log.Info("user nearing limit",
			zap.Int64("user_id", userID),
			zap.Int("limit", limit.Max))
		return Decision{
			Verdict: Warn,
			Message: fmt.Sprintf("⚠️ You're sending %s too fast. Slow down to avoid a %d-minute block.", label, int(g.cfg.BlockFor.Minutes())),
		}
	}
	return Decision{Verdict: Allow}
}

// Run sweeps expired state on a fixed interval until ctx is cancelled.
func (g *Guard) Run(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

// sweep prunes stale timestamps, clears expired blocks, and drops users
// with no remaining state.
func (g *Guard) sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for userID, u := range g.users {
		u.vpn = prune(u.vpn, now, g.cfg.VPN.Window)
		u.general = prune(u.general, now, g.cfg.General.Window)
		if !u.blockedUntil.IsZero() && now.After(u.blockedUntil) {
			u.blockedUntil = time.Time{}
			g.log.Info("unblocked user after block duration", zap.Int64("user_id", userID))
		}
		if len(u.vpn) == 0 && len(u.general) == 0 && u.blockedUntil.IsZero() {
			delete(g.users, userID)
		}
	}
}

func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	return kept
}
