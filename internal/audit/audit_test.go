package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordSuccessAndFailure(t *testing.T) {
	log, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer log.Close()

	now := time.Now()
	log.RecordSuccess(1, "commit", 10, "ABCD", 0, now)
	log.RecordFailure(2, "reveal", 10, "window missed", 1, now)

	var records []TransactionRecord
	require.NoError(t, log.db.Find(&records).Error)
	require.Len(t, records, 2)
}
