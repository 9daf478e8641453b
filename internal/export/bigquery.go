package export

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

// transactionRow is the BigQuery shape of a transaction.
type transactionRow struct {
	TransactionID int64   `bigquery:"transaction_id"`
	Type          string  `bigquery:"type"`
	Amount        float64 `bigquery:"amount"`
	Sender        string  `bigquery:"sender"`
	Receiver      string  `bigquery:"receiver"`
	Timestamp     string  `bigquery:"timestamp"`
	Message       string  `bigquery:"message"`
	// Extra is the JSON object of passthrough keys, empty when none.
	Extra string `bigquery:"extra"`
}

func toRow(t *domain.Transaction) (*transactionRow, error) {
	extra, err := t.ExtraJSON()
	if err != nil {
		return nil, fmt.Errorf("encode extra fields of transaction %d: %w", t.ID, err)
	}
	return &transactionRow{
		TransactionID: t.ID,
		Type:          t.Type,
		Amount:        t.Amount,
		Sender:        t.Sender,
		Receiver:      t.Receiver,
		Timestamp:     t.Timestamp,
		Message:       t.Message,
		Extra:         string(extra),
	}, nil
}

// BigQuery streams transactions into an existing table.
type BigQuery struct {
	project string
	dataset string
	table   string
	opts    []option.ClientOption
}

// NewBigQuery parses "project.dataset.table".
func NewBigQuery(target string, o Options) (*BigQuery, error) {
	parts := strings.Split(target, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("invalid bq target %q, expected project.dataset.table", target)
	}
	return &BigQuery{project: parts[0], dataset: parts[1], table: parts[2], opts: o.gcpOptions()}, nil
}

// Write implements the Sink interface.
func (b *BigQuery) Write(ctx context.Context, txns []*domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	rows := make([]*transactionRow, 0, len(txns))
	for _, t := range txns {
		row, err := toRow(t)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	client, err := bigquery.NewClient(ctx, b.project, b.opts...)
	if err != nil {
		return fmt.Errorf("bigquery client: %w", err)
	}
	defer client.Close()

	inserter := client.DatasetInProject(b.project, b.dataset).Table(b.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("insert rows into %s.%s.%s: %w", b.project, b.dataset, b.table, err)
	}

	return nil
}
