package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notigram/internal/domain/notification"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

const tableName = "delivery_failures"

var _ notification.FailureStore = (*SupabaseStore)(nil)

// SupabaseStore persists delivery failures using the Supabase Go SDK.
type SupabaseStore struct {
	client *supa.Client
}

// NewSupabaseStore creates a new Supabase-backed failure store.
func NewSupabaseStore(supabaseURL, serviceKey string) (*SupabaseStore, error) {
	client, err := supa.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

// failureRow is the PostgREST representation of a delivery failure.
type failureRow struct {
	ID         string `json:"id"`
	ChatID     string `json:"chat_id"`
	Chunk      int    `json:"chunk"`
	Chunks     int    `json:"chunks"`
	StatusCode *int   `json:"status_code,omitempty"`
	Error      string `json:"error"`
	OccurredAt string `json:"occurred_at"`
}

// Create inserts a delivery failure record.
func (s *SupabaseStore) Create(ctx context.Context, f *notification.DeliveryFailure) error {
	_, _, err := s.client.From(tableName).Insert(failureToRow(f), false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("inserting delivery failure: %w", err)
	}
	return nil
}

// RecentFailures lists the most recent failures, newest first.
func (s *SupabaseStore) RecentFailures(ctx context.Context, limit int) ([]*notification.DeliveryFailure, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	data, _, err := s.client.From(tableName).
		Select("*", "", false).
		Order("occurred_at", &postgrest.OrderOpts{Ascending: false}).
		Range(0, limit-1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("listing delivery failures: %w", err)
	}

	var rows []failureRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing delivery failures: %w", err)
	}

	failures := make([]*notification.DeliveryFailure, len(rows))
	for i := range rows {
		failures[i] = rowToFailure(&rows[i])
	}
	return failures, nil
}

func failureToRow(f *notification.DeliveryFailure) failureRow {
	row := failureRow{
		ID:         f.ID,
		ChatID:     f.ChatID,
		Chunk:      f.Chunk,
		Chunks:     f.Chunks,
		Error:      f.Error,
		OccurredAt: f.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if f.StatusCode != 0 {
		code := f.StatusCode
		row.StatusCode = &code
	}
	return row
}

func rowToFailure(row *failureRow) *notification.DeliveryFailure {
	f := &notification.DeliveryFailure{
		ID:     row.ID,
		ChatID: row.ChatID,
		Chunk:  row.Chunk,
		Chunks: row.Chunks,
		Error:  row.Error,
	}
	if row.StatusCode != nil {
		f.StatusCode = *row.StatusCode
	}
	if t, err := time.Parse(time.RFC3339Nano, row.OccurredAt); err == nil {
		f.OccurredAt = t
	}
	return f
}
