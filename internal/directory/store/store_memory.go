package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tchap/go-patricia/v2/patricia"

	"phonebook/internal/directory/keypad"
	"phonebook/internal/directory/models"
)

// InMemoryStore keeps contacts in memory with a patricia trie over
// lowercased first and last names. Used when no database is configured and
// in tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	contacts []*models.Contact // contacts[i].ID == i+1
	names    *patricia.Trie    // lowercased name -> []int64 contact ids
	now      func() time.Time
}

// NewInMemory constructs an empty in-memory contact store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		names: patricia.NewTrie(),
		now:   time.Now,
	}
}

func (s *InMemoryStore) Insert(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *contact
	stored.ID = int64(len(s.contacts) + 1)
	stored.CreatedAt = s.now().UTC()
	s.contacts = append(s.contacts, &stored)

	s.index(stored.FirstName, stored.ID)
	if !strings.EqualFold(stored.FirstName, stored.LastName) {
		s.index(stored.LastName, stored.ID)
	}

	copyContact := stored
	return &copyContact, nil
}

func (s *InMemoryStore) index(name string, id int64) {
	key := patricia.Prefix(strings.ToLower(name))
	if item := s.names.Get(key); item != nil {
		s.names.Set(key, append(item.([]int64), id))
		return
	}
	s.names.Insert(key, []int64{id})
}

// FindByPrefixPatterns returns contacts whose first or last name starts
// with any of the patterns. The read lock makes count and page one snapshot.
func (s *InMemoryStore) FindByPrefixPatterns(ctx context.Context, patterns []keypad.Pattern, page models.PageQuery) (*models.ContactMatches, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make(map[int64]struct{})
	for _, p := range patterns {
		err := s.names.VisitSubtree(patricia.Prefix(p.Prefix()), func(_ patricia.Prefix, item patricia.Item) error {
			for _, id := range item.([]int64) {
				matched[id] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	ids := make([]int64, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	result := &models.ContactMatches{Rows: []*models.Contact{}, Total: len(ids)}
	if page.Offset >= len(ids) || page.Limit <= 0 {
		return result, nil
	}
	end := min(page.Offset+page.Limit, len(ids))
	for _, id := range ids[page.Offset:end] {
		copyContact := *s.contacts[id-1]
		result.Rows = append(result.Rows, &copyContact)
	}
	return result, nil
}

// Count returns the number of stored contacts.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts), nil
}
