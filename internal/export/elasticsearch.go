package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

const (
	esIndex = "momo-transactions"
	esFlush = 2048
)

// ElasticsearchV8 bulk-indexes transactions, one document per id.
type ElasticsearchV8 struct {
	addresses []string
	log       zerolog.Logger
}

// NewElasticsearchV8 creates an Elasticsearch sink.
func NewElasticsearchV8(log zerolog.Logger, urls ...string) *ElasticsearchV8 {
	return &ElasticsearchV8{addresses: urls, log: log}
}

// Write implements the Sink interface.
func (e *ElasticsearchV8) Write(ctx context.Context, txns []*domain.Transaction) error {
	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     e.addresses,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return fmt.Errorf("create elasticsearch client: %w", err)
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         esIndex,
		FlushBytes:    esFlush,
		Client:        es,
		NumWorkers:    4,
		FlushInterval: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}
	closed := false
	defer func() {
		// Stops the indexer's workers when an item fails to queue.
		if !closed {
			_ = bi.Close(context.Background())
		}
	}()

	if res, err := es.Indices.Create(esIndex); err != nil {
		e.log.Warn().Err(err).Str("index", esIndex).Msg("Failed to create index")
	} else {
		res.Body.Close()
	}

	for _, t := range txns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal transaction %d: %w", t.ID, err)
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: strconv.FormatInt(t.ID, 10),
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				ev := e.log.Error().Str("document_id", item.DocumentID)
				if err != nil {
					ev.Err(err).Msg("Failed to index transaction")
				} else {
					ev.Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to index transaction")
				}
			},
		})
		if err != nil {
			return fmt.Errorf("queue transaction %d: %w", t.ID, err)
		}
	}

	closed = true
	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("failed indexing %d of %d documents", stats.NumFailed, stats.NumAdded)
	}

	e.log.Info().Uint64("indexed", stats.NumFlushed).Str("index", esIndex).Msg("Transactions indexed")
	return nil
}
