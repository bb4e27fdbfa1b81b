package adapter

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
)

// BigQuery exports escalated questions for offline review.
type BigQuery interface {
	// ExportEscalations appends the given escalations to the export table
	ExportEscalations(ctx context.Context, rows []model.Escalation) error
}

type bigqueryClient struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// BigQueryOption is a functional option for BigQuery client
type BigQueryOption func(*bigqueryClient)

// WithTable overrides the destination dataset and table
func WithTable(dataset, table string) BigQueryOption {
	return func(bq *bigqueryClient) {
		bq.dataset = dataset
		bq.table = table
	}
}

// NewBigQuery creates a new BigQuery client
func NewBigQuery(ctx context.Context, projectID string, opts ...BigQueryOption) (BigQuery, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client")
	}

	bq := &bigqueryClient{
		client:  client,
		dataset: "zeidan_chat",
		table:   "escalations",
	}

	for _, opt := range opts {
		opt(bq)
	}

	return bq, nil
}

type escalationRow struct {
	ID         string    `bigquery:"id"`
	Question   string    `bigquery:"question"`
	Status     string    `bigquery:"status"`
	CreatedAt  time.Time `bigquery:"created_at"`
	ExportedAt time.Time `bigquery:"exported_at"`
}

func (bq *bigqueryClient) ExportEscalations(ctx context.Context, rows []model.Escalation) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	records := make([]*escalationRow, 0, len(rows))
	for _, e := range rows {
		records = append(records, &escalationRow{
			ID:         string(e.ID),
			Question:   e.Question,
			Status:     string(e.Status),
			CreatedAt:  e.CreatedAt,
			ExportedAt: now,
		})
	}

	inserter := bq.client.Dataset(bq.dataset).Table(bq.table).Inserter()
	if err := inserter.Put(ctx, records); err != nil {
		return goerr.Wrap(err, "failed to insert escalation rows",
			goerr.Value("dataset", bq.dataset),
			goerr.Value("table", bq.table),
		)
	}

	return nil
}
