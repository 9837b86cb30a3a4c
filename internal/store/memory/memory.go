package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerlens/internal/core"
	"ledgerlens/internal/store"
)

var _ store.RecordStore = (*Store)(nil)

type categoryRow struct {
	userID string
	cat    core.Category
}

type transactionRow struct {
	userID     string
	categoryID *int64
	tx         core.Transaction
}

type assetRow struct {
	userID string
	asset  core.Asset
}

// Store is an in-process Record Store. It keeps every user's rows in
// insertion order and is safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	nextCategory int64
	categories   []categoryRow
	transactions []transactionRow
	assets       []assetRow
	now          func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// WithClock overrides the time source used for created_at and last_updated.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) FindCategoryByName(_ context.Context, userID, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := core.CategoryKey(name)
	for _, row := range s.categories {
		if row.userID == userID && core.CategoryKey(row.cat.Name) == key {
			return row.cat, nil
		}
	}
	return core.Category{}, store.ErrNoRows
}

func (s *Store) InsertCategory(_ context.Context, userID, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCategory++
	cat := core.Category{ID: s.nextCategory, Name: name, CreatedAt: s.now().UTC()}
	s.categories = append(s.categories, categoryRow{userID: userID, cat: cat})
	return cat, nil
}

func (s *Store) InsertTransaction(_ context.Context, t store.NewTransaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := core.Transaction{
		ID:              uuid.NewString(),
		Amount:          t.Amount,
		Type:            t.Type,
		Description:     t.Description,
		TransactionDate: core.FormatTimestamp(t.TransactionDate),
		CreatedAt:       core.FormatTimestamp(s.now()),
	}
	s.transactions = append(s.transactions, transactionRow{userID: t.UserID, categoryID: t.CategoryID, tx: tx})
	return s.joinLocked(s.transactions[len(s.transactions)-1]), nil
}

func (s *Store) ListRecentTransactions(_ context.Context, userID string, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, row := range s.transactions {
		if row.userID == userID {
			out = append(out, s.joinLocked(row))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransactionDate > out[j].TransactionDate
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.transactions {
		if row.userID == userID && row.tx.ID == id {
			return s.joinLocked(row), nil
		}
	}
	return core.Transaction{}, store.ErrNoRows
}

func (s *Store) ListAssets(_ context.Context, userID string) ([]core.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Asset, 0)
	for _, row := range s.assets {
		if row.userID == userID {
			out = append(out, row.asset)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdated > out[j].LastUpdated
	})
	return out, nil
}

func (s *Store) UpsertAsset(_ context.Context, userID string, a core.Asset) (core.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.LastUpdated == "" {
		a.LastUpdated = core.FormatTimestamp(s.now())
	}
	for i, row := range s.assets {
		if row.asset.ID != a.ID {
			continue
		}
		if row.userID != userID {
			return core.Asset{}, store.ErrConflict
		}
		s.assets[i].asset = a
		return a, nil
	}
	s.assets = append(s.assets, assetRow{userID: userID, asset: a})
	return a, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// joinLocked resolves the category name the way a LEFT JOIN would.
func (s *Store) joinLocked(row transactionRow) core.Transaction {
	tx := row.tx
	tx.Category = nil
	if row.categoryID != nil {
		for _, c := range s.categories {
			if c.cat.ID == *row.categoryID {
				name := c.cat.Name
				tx.Category = &name
				break
			}
		}
	}
	return tx
}
