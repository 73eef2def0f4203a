// Package promptcache holds rendered prompts for the short window between
// call initiation and the telephony bridge fetching them. Losing an entry is
// a latency hit, never a correctness problem.
package promptcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL covers call setup; prompts are stale after that anyway.
const DefaultTTL = 5 * time.Minute

// Entry is one prepared prompt payload keyed by a content-hash reference.
type Entry struct {
	LeadID       string            `json:"lead_id"`
	SystemPrompt string            `json:"system_prompt"`
	FirstMessage string            `json:"first_message"`
	Variables    map[string]string `json:"variables,omitempty"`
}

// Ref derives a short content-hash reference safe to pass through TwiML
// parameters and URLs.
func Ref(e Entry) string {
	keys := make([]string, 0, len(e.Variables))
	for k := range e.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s:%s", e.LeadID, e.SystemPrompt, e.FirstMessage)
	for _, k := range keys {
		fmt.Fprintf(&b, ":%s=%s", k, e.Variables[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}

// Store is the put/get-with-expiry capability. Implementations may be
// process-local or shared; call sites must not care.
type Store interface {
	Put(ctx context.Context, ref string, e Entry) error
	Get(ctx context.Context, ref string) (Entry, bool, error)
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// Memory is a process-local store. Expired entries are swept lazily on each
// Put rather than by a background goroutine.
type Memory struct {
	ttl     time.Duration
	clock   func() time.Time
	entries map[string]memoryEntry
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, clock: time.Now, entries: map[string]memoryEntry{}}
}

func (m *Memory) Put(ctx context.Context, ref string, e Entry) error {
	_ = ctx
	now := m.clock()
	m.entries[ref] = memoryEntry{entry: e, expiresAt: now.Add(m.ttl)}

	for k, v := range m.entries {
		if now.After(v.expiresAt) {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, ref string) (Entry, bool, error) {
	_ = ctx
	v, ok := m.entries[ref]
	if !ok {
		return Entry{}, false, nil
	}
	if m.clock().After(v.expiresAt) {
		delete(m.entries, ref)
		return Entry{}, false, nil
	}
	return v.entry, true, nil
}

// Redis is a shared store; entries expire server-side.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) key(ref string) string { return "promptcache:" + ref }

func (r *Redis) Put(ctx context.Context, ref string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key(ref), raw, r.ttl).Err()
}

func (r *Redis) Get(ctx context.Context, ref string) (Entry, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key(ref)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}
