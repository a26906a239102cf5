package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Ledger is the in-memory record of responses for one session, flushed per
// question to the durable store. Entries stay in the ledger after
// persistence so a later sweep can resubmit them if a write is invalidated.
type Ledger struct {
	sessionID string
	store     ResponseStore

	mu      sync.RWMutex
	entries map[string]*ledgerEntry
	order   []string
}

type ledgerEntry struct {
	resp Response
	rev  int

	// Serializes store writes for this question so an opportunistic flush
	// and the terminal sweep cannot both save the same revision.
	flushMu sync.Mutex
}

// NewLedger creates an empty ledger bound to a session and store.
func NewLedger(sessionID string, store ResponseStore) *Ledger {
	return &Ledger{
		sessionID: sessionID,
		store:     store,
		entries:   make(map[string]*ledgerEntry),
	}
}

// Record stores text for a question, overwriting any prior text. Last write
// wins; the persisted flag resets so the next flush writes the new text.
func (l *Ledger) Record(questionID, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[questionID]; ok {
		e.resp.Text = text
		e.resp.RecordedAt = time.Now()
		e.resp.Persisted = false
		e.rev++
		return
	}
	l.entries[questionID] = &ledgerEntry{
		resp: Response{QuestionID: questionID, Text: text, RecordedAt: time.Now()},
	}
	l.order = append(l.order, questionID)
}

// Flush persists one question's response. A repeat call after success is a
// no-op; a repeat call after a failure retries the write. Flushing a
// question with no entry is a no-op.
func (l *Ledger) Flush(ctx context.Context, questionID string) error {
	l.mu.RLock()
	e, ok := l.entries[questionID]
	l.mu.RUnlock()
	if !ok {
		return nil
	}

	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	l.mu.RLock()
	text, rev, persisted := e.resp.Text, e.rev, e.resp.Persisted
	l.mu.RUnlock()
	if persisted {
		return nil
	}

	if err := l.store.Save(ctx, l.sessionID, questionID, text); err != nil {
		return fmt.Errorf("%w: question %s: %v", ErrFlushFailed, questionID, err)
	}

	l.mu.Lock()
	// A Record during the write supersedes this text; leave it unpersisted.
	if e.rev == rev {
		e.resp.Persisted = true
	}
	l.mu.Unlock()
	return nil
}

// FlushAll persists every unpersisted entry in record order, continuing
// through failures and returning them joined.
func (l *Ledger) FlushAll(ctx context.Context) error {
	l.mu.RLock()
	ids := append([]string(nil), l.order...)
	l.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := l.Flush(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns a copy of the response for a question.
func (l *Ledger) Get(questionID string) (Response, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[questionID]
	if !ok {
		return Response{}, false
	}
	return e.resp, true
}

// Responses returns copies of all entries in record order.
func (l *Ledger) Responses() []Response {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Response, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.entries[id].resp)
	}
	return out
}
