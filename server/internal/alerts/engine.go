package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/partcast/partcast/server/internal/config"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour

	// defaultExpiry is how long a firing alert outlives the projection that
	// raised it when no vehicle re-posts. See SetExpiry.
	defaultExpiry = time.Hour

	// anonymousVehicle keys alerts for projections submitted without a vehicle_id.
	anonymousVehicle = "anonymous"
)

// Alert represents a single maintenance alert produced by the rule engine.
type Alert struct {
	ID           string     `json:"id"`
	RuleName     string     `json:"rule_name"`
	VehicleID    string     `json:"vehicle_id"`
	Part         string     `json:"part_type"`
	ProjectionID string     `json:"projection_id"`
	Severity     string     `json:"severity"`
	Message      string     `json:"message"`
	Value        float64    `json:"value"`
	FiredAt      time.Time  `json:"fired_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	State        string     `json:"state"` // "firing" | "resolved"
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against projection snapshots and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	client *http.Client
	now    func() time.Time

	mu       sync.Mutex
	expiry   time.Duration
	rules    []rule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "rule:vehicle:part"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	seen     map[string]time.Time // last time each active key still held
	history  []*Alert             // recently resolved alerts
}

// New creates an Engine from the server alert configuration. Rules whose
// condition does not parse are logged and skipped.
// An Engine with no rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		expiry:   defaultExpiry,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		seen:     make(map[string]time.Time),
	}
	e.SetRules(cfg)
	return e
}

// SetExpiry sets how long a firing alert stays active without a new
// projection for its vehicle and part. The server ties it to the projection
// store TTL. Non-positive values are ignored.
func (e *Engine) SetExpiry(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	e.expiry = d
	e.mu.Unlock()
}

// SetRules atomically replaces the rule set and webhook targets. Firing alerts
// for rules that no longer exist are dropped without a resolve notification.
// It returns the number of rules accepted.
func (e *Engine) SetRules(cfg config.AlertsConfig) int {
	rules := make([]rule, 0, len(cfg.Rules))
	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			slog.Warn("alerts: skipping rule", "rule", r.Name, "err", err)
			continue
		}
		if r.Cooldown <= 0 {
			r.Cooldown = defaultCooldown
		}
		if r.Severity == "" {
			r.Severity = "warning"
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
		names[r.Name] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.webhooks = append([]config.WebhookConfig(nil), cfg.Webhooks...)
	for key, a := range e.active {
		if !names[a.RuleName] {
			delete(e.active, key)
			delete(e.seen, key)
		}
	}
	return len(rules)
}

// Evaluate tests all configured rules against snap and returns copies of the
// alerts that fired. Webhook delivery happens asynchronously. Alerts that were
// firing for the same vehicle and part but whose condition no longer holds
// are resolved.
func (e *Engine) Evaluate(snap Snapshot) []Alert {
	vehicle := snap.VehicleID
	if vehicle == "" {
		vehicle = anonymousVehicle
	}

	var fired, notify []Alert

	e.mu.Lock()
	now := e.now()
	e.pruneLocked(now)
	for _, r := range e.rules {
		key := r.Name + ":" + vehicle + ":" + snap.Part
		fires, value := r.cond.eval(snap)

		if fires {
			if _, ok := e.active[key]; ok {
				e.seen[key] = now
			}
			if last, ok := e.lastFire[key]; ok && now.Sub(last) < r.Cooldown {
				continue
			}
			a := &Alert{
				ID:           uuid.NewString(),
				RuleName:     r.Name,
				VehicleID:    vehicle,
				Part:         snap.Part,
				ProjectionID: snap.ProjectionID,
				Severity:     r.Severity,
				Value:        value,
				Message: fmt.Sprintf("[%s] %s fired for %s/%s: %s (value %.2f)",
					r.Severity, r.Name, vehicle, snap.Part, r.Condition, value),
				FiredAt: now,
				State:   "firing",
			}
			e.active[key] = a
			e.seen[key] = now
			e.lastFire[key] = now
			fired = append(fired, *a)
			notify = append(notify, *a)
			continue
		}

		if a, ok := e.active[key]; ok {
			resolved := now
			a.State = "resolved"
			a.ResolvedAt = &resolved
			delete(e.active, key)
			delete(e.seen, key)

			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			notify = append(notify, *a)
		}
	}
	webhooks := e.webhooks
	e.mu.Unlock()

	for i := range notify {
		a := notify[i]
		if a.State == "firing" {
			slog.Warn("alerts: alert fired",
				"rule", a.RuleName,
				"vehicle", a.VehicleID,
				"part", a.Part,
				"value", a.Value,
				"severity", a.Severity,
			)
		} else {
			slog.Info("alerts: alert resolved",
				"rule", a.RuleName,
				"vehicle", a.VehicleID,
				"part", a.Part,
			)
		}
		if len(webhooks) > 0 {
			go e.deliver(webhooks, &a)
		}
	}
	return fired
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.pruneLocked(now)
	cutoff := now.Add(-recentWindow)
	out := make([]Alert, 0, len(e.active))

	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return latest(out[i]).After(latest(out[j]))
	})
	return out
}

// FiringCount returns the number of currently firing alerts.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneLocked(e.now())
	return len(e.active)
}

// pruneLocked bounds per-vehicle state. Cooldown marks older than the longest
// rule cooldown no longer suppress anything. Firing alerts whose condition was
// last seen longer ago than the expiry are dropped without a resolve
// notification, since their vehicle has stopped reporting. Callers must hold
// e.mu.
func (e *Engine) pruneLocked(now time.Time) {
	var longest time.Duration
	for _, r := range e.rules {
		if r.Cooldown > longest {
			longest = r.Cooldown
		}
	}
	for key, last := range e.lastFire {
		if now.Sub(last) >= longest {
			delete(e.lastFire, key)
		}
	}
	for key, seen := range e.seen {
		if now.Sub(seen) >= e.expiry {
			delete(e.active, key)
			delete(e.seen, key)
		}
	}
}

func latest(a Alert) time.Time {
	if a.ResolvedAt != nil {
		return *a.ResolvedAt
	}
	return a.FiredAt
}
