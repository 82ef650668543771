package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/testutil"
)

func TestCleanupPurgesOnlyExpiredRows(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	svc := NewService(tdb.DB.Conn(), tdb.Logger)
	ctx := context.Background()

	_, err := svc.Append(ctx, "movie", "m1", database.HistoryEventGrabbed, "fresh", "")
	require.NoError(t, err)

	// Backdate one row beyond the retention window.
	id, err := svc.Append(ctx, "movie", "m1", database.HistoryEventImported, "stale", "")
	require.NoError(t, err)
	old := time.Now().UTC().Add(-Retention - time.Hour).Format(database.TimeFormat)
	_, err = tdb.DB.Conn().ExecContext(ctx, `UPDATE history SET created_at=? WHERE id=?`, old, id)
	require.NoError(t, err)

	purged, err := svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	rows, err := svc.List(ctx, database.HistoryFilter{EntityID: "m1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "fresh", rows[0].Message)
}

func TestListFiltersByEventType(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	svc := NewService(tdb.DB.Conn(), tdb.Logger)
	ctx := context.Background()

	_, err := svc.Append(ctx, "movie", "m1", database.HistoryEventGrabbed, "grab", "")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "movie", "m1", database.HistoryEventImported, "import", "")
	require.NoError(t, err)

	rows, err := svc.List(ctx, database.HistoryFilter{EventType: database.HistoryEventImported})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "import", rows[0].Message)

	count, err := svc.Count(ctx, database.HistoryFilter{EntityID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
