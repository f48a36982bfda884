package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"ms-invites/internal/models"
	"ms-invites/internal/tickets/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	t.Helper()

	// Connect to an in-memory SQLite DB; a single connection keeps one database
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	store := db.NewDB(bunDB)
	require.NoError(t, store.InitializeSchema(context.Background()))
	return store, bunDB
}

func TestInitializeSchemaIsIdempotent(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := store.CreateTicket(ctx, "Joao_1", uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, store.InitializeSchema(ctx))
	require.NoError(t, store.InitializeSchema(ctx))

	count, err := store.GetTotalTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-running schema init must not drop rows")
}

func TestCreateTicket(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	tok := uuid.NewString()
	ticket, err := store.CreateTicket(ctx, "Joao_1", tok)
	require.NoError(t, err)
	assert.NotZero(t, ticket.ID)
	assert.Equal(t, "Joao_1", ticket.Name)
	assert.Equal(t, tok, ticket.Token)
	assert.False(t, ticket.Redeemed)

	second, err := store.CreateTicket(ctx, "Joao_2", uuid.NewString())
	require.NoError(t, err)
	assert.Greater(t, second.ID, ticket.ID, "ids are assigned monotonically")

	stored, err := store.GetTicketByToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, stored.ID)
	assert.Equal(t, "Joao_1", stored.Name)
	assert.False(t, stored.Redeemed)

	_, err = store.GetTicketByToken(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateTicketRejectsDuplicateToken(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	tok := uuid.NewString()
	_, err := store.CreateTicket(ctx, "Ana_1", tok)
	require.NoError(t, err)

	_, err = store.CreateTicket(ctx, "Ana_2", tok)
	assert.ErrorIs(t, err, db.ErrTokenCollision)
	assert.ErrorIs(t, err, db.ErrPersistence)

	count, err := store.GetTotalTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCountsAndDeleteAll(t *testing.T) {
	store, bunDB := setupTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := store.CreateTicket(ctx, fmt.Sprintf("Guest_%d", i), uuid.NewString())
		require.NoError(t, err)
	}

	total, err := store.GetTotalTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	redeemed, err := store.GetRedeemedTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, redeemed, "the store never sets the redemption flag itself")

	// Simulate the door scanner flagging two tickets.
	_, err = bunDB.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("redeemed = ?", true).
		Where("name IN (?)", bun.In([]string{"Guest_1", "Guest_4"})).
		Exec(ctx)
	require.NoError(t, err)

	redeemed, err = store.GetRedeemedTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, redeemed)
	assert.LessOrEqual(t, redeemed, total)

	deleted, err := store.DeleteAllTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	total, err = store.GetTotalTicketsCount(ctx)
	require.NoError(t, err)
	redeemed, err = store.GetRedeemedTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, redeemed)

	deleted, err = store.DeleteAllTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted, "deleting an empty table is a no-op")
}

func TestConcurrentInserts(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	const workers = 10
	const perWorker = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 1; i <= perWorker; i++ {
				if _, err := store.CreateTicket(ctx, fmt.Sprintf("W%d_%d", w, i), uuid.NewString()); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent insert failed: %v", err)
	}

	count, err := store.GetTotalTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, count)
}

func TestOperationsFailWhenDatabaseClosed(t *testing.T) {
	store, bunDB := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, bunDB.Close())

	_, err := store.CreateTicket(ctx, "Joao_1", uuid.NewString())
	assert.ErrorIs(t, err, db.ErrPersistence)
	assert.NotErrorIs(t, err, db.ErrTokenCollision)

	_, err = store.GetTotalTicketsCount(ctx)
	assert.ErrorIs(t, err, db.ErrPersistence)

	_, err = store.GetRedeemedTicketsCount(ctx)
	assert.ErrorIs(t, err, db.ErrPersistence)

	_, err = store.DeleteAllTickets(ctx)
	assert.ErrorIs(t, err, db.ErrPersistence)
}
