package debugapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleStatusReturnsLatestSnapshot(t *testing.T) {
	srv := NewServer(nil)
	srv.Update(Snapshot{MiningPhase: "revealing", EpochNumber: 12, Hashrate: 42.5, QueueDepth: 2})

	req := httptest.NewRequest(http.MethodGet, "/debug/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "revealing", got.MiningPhase)
	require.Equal(t, uint64(12), got.EpochNumber)
}
