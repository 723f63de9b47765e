package seed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/pledgeboard/internal/audience"
	"github.com/mmynk/pledgeboard/internal/auth"
	"github.com/mmynk/pledgeboard/internal/calculator"
	"github.com/mmynk/pledgeboard/internal/models"
	"github.com/mmynk/pledgeboard/internal/settlement"
	"github.com/mmynk/pledgeboard/internal/storage/sqlite"
)

func TestDemo(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := settlement.NewEngine(store, audience.NewGate(store), settlement.WithClock(func() time.Time { return now }))
	accounts := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	seeded, err := Demo(ctx, store, accounts, engine)
	require.NoError(t, err)
	assert.True(t, seeded)

	threads, err := store.ListThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)

	thread := threads[0]
	assert.Equal(t, time.Date(2025, 3, 6, 23, 59, 59, 0, time.UTC), thread.Deadline)
	assert.Equal(t, models.ThreadOpen, calculator.ThreadStatus(thread, now))
	assert.Equal(t, "350", calculator.PledgedTotal(thread.Pledges).String())
	assert.Equal(t, now.Add(-2*time.Hour), thread.CreatedAt)

	// Newest first: Rafa pledged about 52 minutes ago, Ana 90 minutes ago.
	require.Len(t, thread.Pledges, 2)
	assert.Equal(t, userID(t, store, "rafa"), thread.Pledges[0].SupporterID)
	assert.Equal(t, now.Add(-3100*time.Second), thread.Pledges[0].CreatedAt)
	assert.Equal(t, userID(t, store, "ana"), thread.Pledges[1].SupporterID)
	assert.Equal(t, now.Add(-90*time.Minute), thread.Pledges[1].CreatedAt)
	for _, p := range thread.Pledges {
		assert.True(t, p.CreatedAt.After(thread.CreatedAt))
	}

	_, err = accounts.Authenticate(ctx, "ana", DemoPassword)
	assert.NoError(t, err)

	again, err := Demo(ctx, store, accounts, engine)
	require.NoError(t, err)
	assert.False(t, again)

	threads, err = store.ListThreads(ctx)
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func userID(t *testing.T, store *sqlite.SQLiteStore, username string) string {
	t.Helper()
	u, err := store.GetUserByUsername(context.Background(), username)
	require.NoError(t, err)
	return u.ID
}
