//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kycengine/internal/cases/models"
	"kycengine/internal/cases/store"
	"kycengine/internal/platform/database"
	id "kycengine/pkg/domain"
	"kycengine/pkg/platform/sentinel"
	"kycengine/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	require.NoError(t, database.Migrate(context.Background(), pg.DB, store.Schema))

	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) caseStore {
		require.NoError(t, pg.TruncateTables(context.Background(), "cases"))
		return store.NewSQL(pg.DB, database.DriverPostgres)
	}})
}

// TestPostgresConcurrentUpdates verifies exactly one writer wins per version.
func TestPostgresConcurrentUpdates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	pg := containers.GetManager().GetPostgres(t)
	require.NoError(t, database.Migrate(ctx, pg.DB, store.Schema))
	s := store.NewSQL(pg.DB, database.DriverPostgres)

	c, err := models.NewCase(id.NewCaseID(), models.Entity{LegalName: "Race Ltd", Country: "GB"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, c))

	const writers = 20
	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mine, err := s.FindByID(ctx, c.ID)
			if err != nil {
				return
			}
			mine.Version = 1
			mine.AssignedUser = "reviewer"
			switch err := s.Update(ctx, mine); {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(writers-1), conflicts.Load())
}
