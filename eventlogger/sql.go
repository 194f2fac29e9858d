package eventlogger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Jubilio/mwanga/database"
)

type sqlEventLogger struct {
	db database.Querier
}

func NewSqlEventLogger(db database.Querier) *sqlEventLogger {
	return &sqlEventLogger{
		db: db,
	}
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding event metadata: %w", err)
	}
	statement := `INSERT INTO events (id, event_type, event_data, event_metadata, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err = el.db.ExecContext(ctx, el.db.Rebind(statement), e.ID, e.Type, string(jsonData), string(jsonMetadata), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

func (el *sqlEventLogger) GetByType(ctx context.Context, eventType string) ([]Event, error) {
	query := `SELECT id, event_type, event_data, event_metadata, created_at FROM events WHERE event_type = ? ORDER BY created_at`
	result, err := el.db.QueryContext(ctx, el.db.Rebind(query), eventType)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer result.Close()

	events := make([]Event, 0)
	for result.Next() {
		var event Event
		var jsonData, jsonMetadata []byte
		if err := result.Scan(&event.ID, &event.Type, &jsonData, &jsonMetadata, &event.CreatedAt); err != nil {
			return events, fmt.Errorf("scanning event: %w", err)
		}
		event.Data = json.RawMessage(jsonData)
		if err := json.Unmarshal(jsonMetadata, &event.Metadata); err != nil {
			return events, fmt.Errorf("decoding event metadata: %w", err)
		}

		events = append(events, event)
	}

	if err := result.Err(); err != nil {
		return events, err
	}

	return events, nil
}
