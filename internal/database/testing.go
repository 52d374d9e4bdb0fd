package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// PopulateTestReports inserts index entries for tests that need existing
// reports. Missing ids, timestamps and formats are filled in.
func PopulateTestReports(t *testing.T, db *Database, reports ...*SavedReport) {
	t.Helper()
	ctx := context.Background()

	for _, r := range reports {
		tx, err := db.BeginTx(ctx)
		require.NoError(t, err)

		if r.ID == 0 {
			r.ID, err = db.NextReportID(ctx, tx)
			require.NoError(t, err)
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
		}
		if r.Format == "" {
			r.Format = "html"
		}

		require.NoError(t, db.InsertSavedReportTx(ctx, tx, r), "failed to populate report %s", r.Name)
		require.NoError(t, tx.Commit())
	}
}
