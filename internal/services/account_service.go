package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"transferdash/internal/cache"
	"transferdash/internal/core"
	"transferdash/internal/log"
	"transferdash/internal/storage"
)

const accountCacheTTL = 10 * time.Minute

// DefaultAccounts are the synthetic accounts used when no seed is available.
func DefaultAccounts() []core.Account {
	return []core.Account{
		{ID: "1", Type: "Cuenta Corriente", Name: "Juan Pérez", Balance: decimal.NewFromInt(15000), Currency: "USD",
			Photo: "https://randomuser.me/api/portraits/men/1.jpg", AccountNumber: "001-1234567"},
		{ID: "2", Type: "Cuenta Ahorros", Name: "María García", Balance: decimal.NewFromInt(25000), Currency: "USD",
			Photo: "https://randomuser.me/api/portraits/women/1.jpg", AccountNumber: "001-1234568"},
		{ID: "3", Type: "Cuenta Corriente", Name: "Carlos López", Balance: decimal.NewFromInt(18000), Currency: "USD",
			Photo: "https://randomuser.me/api/portraits/men/2.jpg", AccountNumber: "001-1234569"},
		{ID: "4", Type: "Cuenta Ahorros", Name: "Ana Martínez", Balance: decimal.NewFromInt(32000), Currency: "USD",
			Photo: "https://randomuser.me/api/portraits/women/2.jpg", AccountNumber: "001-1234570"},
	}
}

// AccountService serves the synthetic accounts. They are read from the
// key-value store, else from a JSON seed file, else from DefaultAccounts,
// and whatever was chosen is written back to the store.
type AccountService struct {
	kv       storage.KeyValueStore
	seedFile string
	logger   *log.Logger
	byID     *cache.LRUCache[core.Account]
	group    singleflight.Group

	mu       sync.RWMutex
	accounts []core.Account
}

func NewAccountService(kv storage.KeyValueStore, seedFile string, logger *log.Logger) *AccountService {
	return &AccountService{
		kv:       kv,
		seedFile: seedFile,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentAccounts),
		byID:     cache.NewLRUCache[core.Account](256, accountCacheTTL),
	}
}

// Cache exposes the id lookup cache so it can be swept by a cache.Manager.
func (s *AccountService) Cache() cache.Cleaner {
	return s.byID
}

// Accounts returns every account. Concurrent first calls share one load.
func (s *AccountService) Accounts(ctx context.Context) ([]core.Account, error) {
	s.mu.RLock()
	loaded := s.accounts
	s.mu.RUnlock()
	if loaded != nil {
		return append([]core.Account(nil), loaded...), nil
	}

	v, err, _ := s.group.Do("accounts", func() (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]core.Account(nil), v.([]core.Account)...), nil
}

func (s *AccountService) load(ctx context.Context) ([]core.Account, error) {
	raw, ok, err := s.kv.Get(ctx, storage.KeyAccounts)
	if err != nil {
		s.logger.WarnContext(ctx, "Account read failed, using seed", log.FieldOperation, log.OpRead, log.FieldError, err)
	}
	var accounts []core.Account
	if ok {
		if err := json.Unmarshal(raw, &accounts); err != nil {
			s.logger.WarnContext(ctx, "Stored accounts undecodable, using seed", log.FieldOperation, log.OpDecode, log.FieldError, err)
			accounts = nil
		}
	}
	if len(accounts) == 0 {
		accounts = s.seed(ctx)
		if err := s.persist(ctx, accounts); err != nil {
			s.logger.WarnContext(ctx, "Failed to persist seeded accounts", log.FieldOperation, log.OpWrite, log.FieldError, err)
		}
	}

	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "Accounts loaded", log.FieldCount, len(accounts))
	return accounts, nil
}

func (s *AccountService) seed(ctx context.Context) []core.Account {
	if s.seedFile == "" {
		return DefaultAccounts()
	}
	raw, err := os.ReadFile(s.seedFile)
	if err != nil {
		s.logger.WarnContext(ctx, "Account seed file unreadable, using defaults", "file", s.seedFile, log.FieldError, err)
		return DefaultAccounts()
	}
	var accounts []core.Account
	if err := json.Unmarshal(raw, &accounts); err != nil || len(accounts) == 0 {
		s.logger.WarnContext(ctx, "Account seed file invalid, using defaults", "file", s.seedFile, log.FieldError, err)
		return DefaultAccounts()
	}
	return accounts
}

func (s *AccountService) persist(ctx context.Context, accounts []core.Account) error {
	raw, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	return s.kv.Set(ctx, storage.KeyAccounts, raw)
}

// AccountByID looks an account up, caching hits.
func (s *AccountService) AccountByID(ctx context.Context, id string) (core.Account, bool) {
	if a, ok := s.byID.Get(id); ok {
		return a, true
	}
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return core.Account{}, false
	}
	for _, a := range accounts {
		if a.ID == id {
			s.byID.Set(id, a)
			return a, true
		}
	}
	return core.Account{}, false
}

// AccountName returns the display name of id, or id itself when unknown.
func (s *AccountService) AccountName(ctx context.Context, id string) string {
	if a, ok := s.AccountByID(ctx, id); ok {
		return a.Name
	}
	return id
}

// Refresh regenerates every balance, persists the result and returns it.
func (s *AccountService) Refresh(ctx context.Context) ([]core.Account, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].Balance = randomBalance()
	}
	if err := s.persist(ctx, accounts); err != nil {
		return nil, fmt.Errorf("refresh accounts: %w", err)
	}

	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	s.byID.Purge()
	s.logger.InfoContext(ctx, "Account balances refreshed", log.FieldCount, len(accounts))
	return append([]core.Account(nil), accounts...), nil
}

// randomBalance is between 1,000.00 and 50,000.00.
func randomBalance() decimal.Decimal {
	cents := 100_000 + rand.Int64N(4_900_001)
	return decimal.New(cents, -2)
}
