//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"phonebook/internal/directory/keypad"
	"phonebook/internal/directory/models"
	"phonebook/internal/directory/store"
	"phonebook/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateContacts(context.Background()))
}

func (s *PostgresStoreSuite) insert(last, first string) *models.Contact {
	c, err := models.NewContact(last, first, "555-0100")
	s.Require().NoError(err)
	stored, err := s.store.Insert(context.Background(), c)
	s.Require().NoError(err)
	return stored
}

func (s *PostgresStoreSuite) find(digits string, page models.PageQuery) *models.ContactMatches {
	res, err := s.store.FindByPrefixPatterns(context.Background(), keypad.Expand(digits), page)
	s.Require().NoError(err)
	return res
}

func (s *PostgresStoreSuite) TestInsertAssignsIDAndTimestamp() {
	a := s.insert("Bai", "Anny")
	b := s.insert("Cain", "Abe")

	s.Equal(int64(1), a.ID)
	s.Equal(int64(2), b.ID)
	s.False(a.CreatedAt.IsZero())

	n, err := s.store.Count(context.Background())
	s.Require().NoError(err)
	s.Equal(2, n)

	rows, err := s.postgres.CountContacts(context.Background())
	s.Require().NoError(err)
	s.Equal(n, rows)
}

func (s *PostgresStoreSuite) TestRoundTripByKeypadSpelling() {
	s.insert("Bai", "Anny")

	s.Equal(1, s.find("224", models.PageQuery{Limit: 10}).Total)
	s.Equal(1, s.find("2669", models.PageQuery{Limit: 10}).Total)
	s.Zero(s.find("999", models.PageQuery{Limit: 10}).Total)
}

func (s *PostgresStoreSuite) TestMatchesEitherNameCaseInsensitively() {
	s.insert("SMITH", "john")
	s.insert("Cole", "Smithers")

	res := s.find("76484", models.PageQuery{Limit: 10})
	s.Equal(2, res.Total)
	s.Require().Len(res.Rows, 2)
	s.Equal("SMITH", res.Rows[0].LastName)
	s.Equal("Smithers", res.Rows[1].FirstName)
}

func (s *PostgresStoreSuite) TestLikeMetacharactersMatchLiterally() {
	s.insert("Bai", "Anny")

	res, err := s.store.FindByPrefixPatterns(context.Background(),
		[]keypad.Pattern{keypad.NewPattern("%"), keypad.NewPattern("_a")}, models.PageQuery{Limit: 10})
	s.Require().NoError(err)
	s.Zero(res.Total)
}

func (s *PostgresStoreSuite) TestPaginationKeepsTotal() {
	for i := range 15 {
		s.insert("Smith", fmt.Sprintf("Name%c", 'a'+i))
	}
	s.insert("Jones", "Bob")

	first := s.find("76484", models.PageQuery{Limit: 10, Offset: 0})
	s.Equal(15, first.Total)
	s.Len(first.Rows, 10)

	second := s.find("76484", models.PageQuery{Limit: 10, Offset: 10})
	s.Equal(15, second.Total)
	s.Len(second.Rows, 5)
	s.Equal("Nameo", second.Rows[4].FirstName)

	past := s.find("76484", models.PageQuery{Limit: 10, Offset: 30})
	s.Equal(15, past.Total)
	s.Empty(past.Rows)
}

func (s *PostgresStoreSuite) TestLargeExpansionIsOneStatement() {
	s.insert("Zwyx", "Quinn")

	// 4^7 patterns bound as a single array parameter.
	res := s.find("9999999", models.PageQuery{Limit: 10})
	s.Zero(res.Total)

	res = s.find("9999", models.PageQuery{Limit: 10})
	s.Equal(1, res.Total)
}

func (s *PostgresStoreSuite) TestConcurrentInsertsKeepSnapshotsConsistent() {
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers*2)
	for i := range writers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c, _ := models.NewContact("Abbot", fmt.Sprintf("Writer%c", 'a'+i), "555")
			if _, err := s.store.Insert(ctx, c); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			res, err := s.store.FindByPrefixPatterns(ctx, keypad.Expand("2"), models.PageQuery{Limit: 100})
			if err != nil {
				errs <- err
				return
			}
			if len(res.Rows) != res.Total {
				errs <- fmt.Errorf("total %d with %d rows", res.Total, len(res.Rows))
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Fail(err.Error())
	}
	s.Equal(writers, s.find("2", models.PageQuery{Limit: 100}).Total)
}
