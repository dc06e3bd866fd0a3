package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fitpoint/fitpoint/pkg/compute"
	"github.com/fitpoint/fitpoint/server/internal/config"
	"github.com/fitpoint/fitpoint/server/internal/session"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	SessionID  string     `json:"session_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

// Engine evaluates alert rules against session analyses and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:sessionID"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time

	// OnFire, when set, is called synchronously for every fired alert.
	OnFire func(Alert)
}

// New creates an Engine from the server alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Observe is a session.Listener: fresh analyses are evaluated, and alerts of
// deleted or evicted sessions are resolved.
func (e *Engine) Observe(ev session.Event) {
	switch ev.Kind {
	case session.EventAnalyzed:
		if ev.Analysis != nil {
			e.Evaluate(ev.ID, ev.Analysis)
		}
	case session.EventDeleted, session.EventEvicted:
		e.Forget(ev.ID)
	}
}

// Evaluate tests all configured rules against a.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(sessionID string, a *compute.Analysis) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	for _, rule := range e.rules {
		key := rule.Name + ":" + sessionID
		fires, value := evalCondition(rule.Condition, a)

		if fires {
			e.fire(rule, key, sessionID, value, now)
		} else {
			e.resolve(key, now)
		}
	}
}

func (e *Engine) fire(rule config.AlertRule, key, sessionID string, value float64, now time.Time) {
	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	e.mu.Lock()
	if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
		e.mu.Unlock()
		return
	}
	sev := rule.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:        fmt.Sprintf("%s:%s:%d", rule.Name, sessionID, now.UnixNano()),
		RuleName:  rule.Name,
		SessionID: sessionID,
		Severity:  sev,
		Value:     value,
		Message: fmt.Sprintf("[%s] %s fired on session %s: %s (value %.2f)",
			sev, rule.Name, sessionID, rule.Condition, value),
		FiredAt: now,
		State:   StateFiring,
	}
	e.active[key] = a
	e.lastFire[key] = now
	alertCopy := *a
	e.mu.Unlock()

	slog.Warn("alerts: fired",
		"rule", rule.Name,
		"session", sessionID,
		"value", value,
		"severity", sev,
	)
	if e.OnFire != nil {
		e.OnFire(alertCopy)
	}
	go e.deliver(&alertCopy)
}

func (e *Engine) resolve(key string, now time.Time) {
	e.mu.Lock()
	a, ok := e.active[key]
	if !ok {
		e.mu.Unlock()
		return
	}
	resolved := now
	a.State = StateResolved
	a.ResolvedAt = &resolved
	delete(e.active, key)
	e.pushHistory(a)
	alertCopy := *a
	e.mu.Unlock()

	slog.Info("alerts: resolved", "rule", a.RuleName, "session", a.SessionID)
	go e.deliver(&alertCopy)
}

// Forget resolves every alert held for sessionID without webhook delivery and
// clears its cooldowns. Used when a session goes away.
func (e *Engine) Forget(sessionID string) {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, a := range e.active {
		if a.SessionID != sessionID {
			continue
		}
		resolved := now
		a.State = StateResolved
		a.ResolvedAt = &resolved
		delete(e.active, key)
		e.pushHistory(a)
	}
	for _, rule := range e.rules {
		delete(e.lastFire, rule.Name+":"+sessionID)
	}
}

// pushHistory must be called with mu held.
func (e *Engine) pushHistory(a *Alert) {
	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// FiringCount returns the number of alerts currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
