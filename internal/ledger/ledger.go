// Package ledger holds the authoritative, newest-first list of transfers. It
// is rehydrated from a key-value store once and every successful append is
// persisted before being broadcast.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"transferdash/internal/core"
	"transferdash/internal/log"
	"transferdash/internal/storage"
	"transferdash/internal/stream"
)

// Store is the single writer of the ledger blob.
type Store struct {
	kv     storage.KeyValueStore
	key    string
	logger *log.Logger

	mu      sync.Mutex
	subject *stream.Subject[[]core.Transfer]
}

// Open reads and decodes the collection stored under key. A missing key, a
// read error or undecodable content all start an empty ledger.
func Open(ctx context.Context, kv storage.KeyValueStore, key string, logger *log.Logger) *Store {
	logger = log.OrDiscard(logger).WithComponent(log.ComponentLedger)
	s := &Store{kv: kv, key: key, logger: logger}
	s.subject = stream.NewSubject(s.load(ctx))
	return s
}

func (s *Store) load(ctx context.Context) []core.Transfer {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger read failed, starting empty",
			log.FieldKey, s.key, log.FieldOperation, log.OpRead, log.FieldError, err)
		return []core.Transfer{}
	}
	if !ok {
		return []core.Transfer{}
	}
	var transfers []core.Transfer
	if err := json.Unmarshal(raw, &transfers); err != nil {
		s.logger.WarnContext(ctx, "Ledger content undecodable, starting empty",
			log.FieldKey, s.key, log.FieldOperation, log.OpDecode, log.FieldError, err)
		return []core.Transfer{}
	}
	if transfers == nil {
		transfers = []core.Transfer{}
	}
	s.logger.InfoContext(ctx, "Ledger rehydrated", log.FieldKey, s.key, log.FieldCount, len(transfers))
	return transfers
}

// Append prepends t, persists the whole collection and then publishes it.
// When persistence fails nothing changes and the error is returned.
func (s *Store) Append(ctx context.Context, t core.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.subject.Value()
	next := make([]core.Transfer, 0, len(current)+1)
	next = append(next, t)
	next = append(next, current...)

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}

	s.subject.Publish(next)
	s.logger.DebugContext(ctx, "Transfer appended", log.FieldTransferID, t.ID, log.FieldCount, len(next))
	return nil
}

// All returns a copy of the current collection, newest first.
func (s *Store) All() []core.Transfer {
	cur := s.subject.Value()
	out := make([]core.Transfer, len(cur))
	copy(out, cur)
	return out
}

// Len returns the number of transfers.
func (s *Store) Len() int {
	return len(s.subject.Value())
}

// Find looks a transfer up by id.
func (s *Store) Find(id string) (core.Transfer, bool) {
	for _, t := range s.subject.Value() {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transfer{}, false
}

// Subscribe delivers the current collection immediately and every later
// one. Subscribers must treat the slice as read-only.
func (s *Store) Subscribe(fn func([]core.Transfer)) stream.Subscription {
	return s.subject.Subscribe(fn)
}
