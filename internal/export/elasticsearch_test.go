package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

func TestElasticsearchV8_FailedItemStopsIndexer(t *testing.T) {
	es := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"acknowledged":true}`))
	}))
	before := runtime.NumGoroutine()

	// Invalid passthrough JSON makes the document fail to encode.
	txns := []*domain.Transaction{
		{ID: 1, Type: "deposit", Extra: map[string]json.RawMessage{"broken": json.RawMessage(`{`)}},
	}
	err := NewElasticsearchV8(zerolog.Nop(), es.URL).Write(context.Background(), txns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal transaction 1")

	es.Close()
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 5*time.Second, 50*time.Millisecond)
}
