package chat

import (
	"sync"
	"time"
)

type transcript struct {
	epoch     uint64
	expiresAt time.Time
	entries   []Entry
}

func (t *transcript) expired(now time.Time) bool {
	return !t.expiresAt.IsZero() && !now.Before(t.expiresAt)
}

// Transcripts keeps the append-only conversation of each session in memory
// until the session logs out or expires. Nothing is persisted across sessions.
type Transcripts struct {
	mu       sync.RWMutex
	sessions map[string]*transcript
	epoch    uint64
}

func NewTranscripts() *Transcripts {
	return &Transcripts{sessions: make(map[string]*transcript)}
}

// Open returns the epoch of the session's transcript, starting one when the
// session has none. A zero expiresAt never expires.
func (t *Transcripts) Open(sessionID string, expiresAt time.Time) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tr, ok := t.sessions[sessionID]; ok && !tr.expired(time.Now()) {
		if expiresAt.After(tr.expiresAt) {
			tr.expiresAt = expiresAt
		}
		return tr.epoch
	}
	t.epoch++
	t.sessions[sessionID] = &transcript{epoch: t.epoch, expiresAt: expiresAt}
	return t.epoch
}

// Append adds entries to the transcript opened at epoch. It reports false and
// drops the entries when that transcript was dropped in the meantime.
func (t *Transcripts) Append(sessionID string, epoch uint64, entries ...Entry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.sessions[sessionID]
	if !ok || tr.epoch != epoch {
		return false
	}
	tr.entries = append(tr.entries, entries...)
	return true
}

// Entries returns a copy of the session's transcript in append order.
func (t *Transcripts) Entries(sessionID string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tr, ok := t.sessions[sessionID]
	if !ok || tr.expired(time.Now()) {
		return []Entry{}
	}
	out := make([]Entry, len(tr.entries))
	copy(out, tr.entries)
	return out
}

func (t *Transcripts) Drop(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}

// Expired drops every transcript whose session has expired and returns their
// session ids.
func (t *Transcripts) Expired() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var ids []string
	for id, tr := range t.sessions {
		if tr.expired(now) {
			delete(t.sessions, id)
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *Transcripts) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
