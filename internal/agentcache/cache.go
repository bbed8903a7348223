// Package agentcache maps job template names to provisioned voice agent ids.
package agentcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TemplateVoiceOutreach is the template used for voice campaigns.
const TemplateVoiceOutreach = "voice_outreach"

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = eris.New("agentcache: cache is closed")

// Cache looks up agent ids by template name.
type Cache interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, template string) (string, bool)
	Set(ctx context.Context, template, agentID string) error
	Close() error
}

type entry struct {
	agentID  string
	storedAt time.Time
}

// Stats reports cache activity.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Memory is an in-process Cache with per-entry TTL. A zero TTL never expires.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	seed    map[string]string
	ttl     time.Duration
	closed  bool
	nowFunc func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates a Memory cache. seed is loaded on Init.
func NewMemory(ttl time.Duration, seed map[string]string) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		seed:    seed,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Init loads the seed entries.
func (m *Memory) Init(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	now := m.nowFunc()
	for tmpl, id := range m.seed {
		if id == "" {
			continue
		}
		m.entries[tmpl] = entry{agentID: id, storedAt: now}
	}
	zap.L().Debug("agentcache: initialized", zap.Int("entries", len(m.entries)))
	return nil
}

// Get returns the agent id for template. Expired entries are evicted and
// reported as misses.
func (m *Memory) Get(_ context.Context, template string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[template]
	if !ok || m.closed {
		m.misses.Add(1)
		return "", false
	}
	if m.ttl > 0 && m.nowFunc().Sub(e.storedAt) > m.ttl {
		delete(m.entries, template)
		m.misses.Add(1)
		return "", false
	}
	m.hits.Add(1)
	return e.agentID, true
}

// Set stores or refreshes the agent id for template.
func (m *Memory) Set(_ context.Context, template, agentID string) error {
	if template == "" || agentID == "" {
		return eris.New("agentcache: template and agent id are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.entries[template] = entry{agentID: agentID, storedAt: m.nowFunc()}
	return nil
}

// Close drops all entries. Later calls to Set and Init fail.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = make(map[string]entry)
	return nil
}

// Stats returns cache statistics.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	n := len(m.entries)
	m.mu.Unlock()
	return Stats{Entries: n, Hits: m.hits.Load(), Misses: m.misses.Load()}
}
