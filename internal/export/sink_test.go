package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/momo-tracker/internal/domain"
	"github.com/dvloznov/momo-tracker/internal/loader"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		dest    string
		want    interface{}
		wantErr bool
	}{
		{dest: "jsonfile:out.json", want: &JSONFile{}},
		{dest: "es8:http://localhost:9200", want: &ElasticsearchV8{}},
		{dest: "postgres:postgres://momo@localhost/momo?sslmode=disable", want: &Postgres{}},
		{dest: "gcs:momo-bucket/snapshots/transactions.json", want: &GCS{}},
		{dest: "bq:my-project.finance.momo_transactions", want: &BigQuery{}},
		{dest: "gcs:bucket-only", wantErr: true},
		{dest: "bq:project.dataset", wantErr: true},
		{dest: "jsonfile:", wantErr: true},
		{dest: "out.json", wantErr: true},
		{dest: "sqlite:db.sqlite3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			sink, err := Open(tt.dest, Options{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, sink)
		})
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open("sqlite:db.sqlite3", Options{})
	assert.ErrorIs(t, err, ErrUnknownSink)
}

func TestJSONFile_RoundTripsThroughLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed", "transactions.json")
	sink := NewJSONFile(path)

	txns := []*domain.Transaction{
		{ID: 1, Type: "deposit", Amount: 5000, Sender: "John Doe", Receiver: "MTN_MOMO", Timestamp: "2024-01-01T10:00:00", Message: "deposited"},
		{ID: 4, Type: "payment", Amount: 1200, Sender: "Jane Smith", Receiver: "ShopRite", Timestamp: "2024-02-01T10:00:00"},
	}
	require.NoError(t, sink.Write(context.Background(), txns))

	records, err := loader.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "deposited", records[0].Message)
	assert.Equal(t, 1200.0, records[1].Amount)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestJSONFile_EmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, NewJSONFile(path).Write(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func passthroughTx() *domain.Transaction {
	return &domain.Transaction{
		ID: 7, Type: "transfer", Amount: 300, Sender: "A", Receiver: "B", Timestamp: "2024-03-01T09:00:00",
		Extra: map[string]json.RawMessage{"channel": json.RawMessage(`"ussd"`)},
	}
}

func TestJSONFile_KeepsPassthroughFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	require.NoError(t, NewJSONFile(path).Write(context.Background(), []*domain.Transaction{passthroughTx()}))

	records, err := loader.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `"ussd"`, string(records[0].Extra["channel"]))
	assert.NotContains(t, records[0].Extra, "id")
}

func TestUpsertArgs(t *testing.T) {
	args, err := upsertArgs(passthroughTx())
	require.NoError(t, err)
	require.Len(t, args, 8)
	assert.JSONEq(t, `{"channel":"ussd"}`, args[7].(string))

	args, err = upsertArgs(&domain.Transaction{ID: 1})
	require.NoError(t, err)
	assert.Nil(t, args[7])
}

func TestToRow(t *testing.T) {
	row, err := toRow(passthroughTx())
	require.NoError(t, err)
	assert.Equal(t, int64(7), row.TransactionID)
	assert.JSONEq(t, `{"channel":"ussd"}`, row.Extra)

	row, err = toRow(&domain.Transaction{ID: 2})
	require.NoError(t, err)
	assert.Empty(t, row.Extra)
}
