package vote

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

// shardCount spreads tally locks so concurrent votes on unrelated content
// rarely contend.
const shardCount = 32

// Tally is the running total for one piece of content. Counts only grow.
type Tally struct {
	ContentID   string    `json:"content_id"`
	Count       int64     `json:"count"`
	LastUpdated time.Time `json:"last_updated"`
}

type tallyShard struct {
	mu     sync.Mutex
	counts map[string]*Tally
}

type session struct {
	mu         sync.Mutex
	selections map[string]struct{}
	expiresAt  time.Time
}

// Ledger records which content each session has voted for and keeps global
// per-content tallies. Submissions apply all-or-nothing: a rejected
// submission leaves neither selections nor tallies behind.
type Ledger struct {
	window time.Duration
	now    func() time.Time

	shards [shardCount]tallyShard

	smu      sync.RWMutex
	sessions map[string]*session
}

// NewLedger builds a ledger whose sessions stay deduplicated for
// sessionWindow after their last vote.
func NewLedger(sessionWindow time.Duration) *Ledger {
	l := &Ledger{
		window:   sessionWindow,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for i := range l.shards {
		l.shards[i].counts = make(map[string]*Tally)
	}
	return l
}

// Vote records one selection per content id for the session. It rejects the
// whole submission when it is malformed, when any pair was already recorded
// for this session, or when the session would pass maxPerSession selections.
func (l *Ledger) Vote(sessionID string, contentIDs []string, maxPerSession int) error {
	err := l.vote(sessionID, contentIDs, maxPerSession)
	if err != nil {
		recordRejection()
	}
	return err
}

func (l *Ledger) vote(sessionID string, contentIDs []string, maxPerSession int) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidVote)
	}
	if maxPerSession <= 0 {
		return fmt.Errorf("%w: session cap must be positive, got %d", ErrInvalidVote, maxPerSession)
	}
	if len(contentIDs) == 0 {
		return fmt.Errorf("%w: no selections", ErrInvalidVote)
	}
	if len(contentIDs) > maxPerSession {
		return fmt.Errorf("%w: %d selections exceed the session cap of %d", ErrInvalidVote, len(contentIDs), maxPerSession)
	}
	seen := make(map[string]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		if id == "" {
			return fmt.Errorf("%w: empty content id", ErrInvalidVote)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: content %s appears twice in one submission", ErrInvalidVote, id)
		}
		seen[id] = struct{}{}
	}

	now := l.now()
	sess := l.ensureSession(sessionID, now)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	for _, id := range contentIDs {
		if _, dup := sess.selections[id]; dup {
			return fmt.Errorf("%w: content %s", ErrAlreadyVoted, id)
		}
	}
	if len(sess.selections)+len(contentIDs) > maxPerSession {
		return fmt.Errorf("%w: session holds %d of %d allowed selections", ErrInvalidVote, len(sess.selections), maxPerSession)
	}

	// All checks passed; apply under the session lock so a concurrent
	// submission for the same session serializes behind this one.
	for _, id := range contentIDs {
		sess.selections[id] = struct{}{}
		l.bump(id, now)
	}
	recordVotes(len(contentIDs))
	return nil
}

// Leaderboard returns up to limit tallies ordered by count descending, then
// most recently updated, then content id so equal rows always land in the
// same order.
func (l *Ledger) Leaderboard(limit int) ([]Tally, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidVote, limit)
	}
	all := l.Snapshot()
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		if !all[i].LastUpdated.Equal(all[j].LastUpdated) {
			return all[i].LastUpdated.After(all[j].LastUpdated)
		}
		return all[i].ContentID < all[j].ContentID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Snapshot copies every tally, locking one shard at a time so voting never
// pauses globally.
func (l *Ledger) Snapshot() []Tally {
	var out []Tally
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.Lock()
		for _, t := range sh.counts {
			out = append(out, *t)
		}
		sh.mu.Unlock()
	}
	return out
}

// Restore seeds tallies from persisted state, keeping whichever count is
// larger when a content id is already present. Meant for startup, before the
// ledger takes traffic.
func (l *Ledger) Restore(tallies []Tally) {
	for _, t := range tallies {
		if t.ContentID == "" || t.Count <= 0 {
			continue
		}
		sh := l.shard(t.ContentID)
		sh.mu.Lock()
		cur, ok := sh.counts[t.ContentID]
		if !ok || t.Count > cur.Count {
			cp := t
			sh.counts[t.ContentID] = &cp
		}
		sh.mu.Unlock()
	}
}

// Sweep drops sessions whose window has closed and reports how many were
// removed. Tallies are untouched.
func (l *Ledger) Sweep() int {
	now := l.now()
	l.smu.Lock()
	defer l.smu.Unlock()
	n := 0
	for id, s := range l.sessions {
		if now.After(s.expiresAt) {
			delete(l.sessions, id)
			n++
		}
	}
	return n
}

// ensureSession returns the live session for id, replacing it when its
// window has closed, and slides the window forward.
func (l *Ledger) ensureSession(id string, now time.Time) *session {
	l.smu.Lock()
	defer l.smu.Unlock()
	s, ok := l.sessions[id]
	if !ok || now.After(s.expiresAt) {
		s = &session{selections: make(map[string]struct{})}
		l.sessions[id] = s
	}
	s.expiresAt = now.Add(l.window)
	return s
}

func (l *Ledger) shard(contentID string) *tallyShard {
	h := fnv.New32a()
	h.Write([]byte(contentID))
	return &l.shards[h.Sum32()%shardCount]
}

// bump increments one tally under its shard lock. Session locks are never
// taken here, so lock order stays session then shard.
func (l *Ledger) bump(contentID string, at time.Time) {
	sh := l.shard(contentID)
	sh.mu.Lock()
	t, ok := sh.counts[contentID]
	if !ok {
		t = &Tally{ContentID: contentID}
		sh.counts[contentID] = t
	}
	t.Count++
	if at.After(t.LastUpdated) {
		t.LastUpdated = at
	}
	sh.mu.Unlock()
}
