package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spconnect/database"
	"spconnect/domain/contracts"
)

// SqliteTriggerStateRepository implements contracts.TriggerStateRepository on the trigger_state table.
type SqliteTriggerStateRepository struct {
	*BaseRepository
}

// NewSqliteTriggerStateRepository creates a trigger state repository.
func NewSqliteTriggerStateRepository(database *database.Database) contracts.TriggerStateRepository {
	return &SqliteTriggerStateRepository{BaseRepository: NewBaseRepository(database)}
}

// Get retrieves the stored value for key.
func (r *SqliteTriggerStateRepository) Get(ctx context.Context, key string) (*contracts.TriggerState, error) {
	row := r.ReadDB().QueryRowContext(ctx,
		"SELECT key, value, updated_at FROM trigger_state WHERE key = ?", key)

	state, err := scanTriggerState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contracts.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trigger state %s: %w", key, err)
	}
	return state, nil
}

// Set stores value for key, replacing any previous value.
func (r *SqliteTriggerStateRepository) Set(ctx context.Context, key string, value int64) error {
	_, err := r.WriteDB().ExecContext(ctx, `
		INSERT INTO trigger_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set trigger state %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SqliteTriggerStateRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.WriteDB().ExecContext(ctx, "DELETE FROM trigger_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete trigger state %s: %w", key, err)
	}
	return nil
}

// List returns every stored state ordered by key.
func (r *SqliteTriggerStateRepository) List(ctx context.Context) ([]*contracts.TriggerState, error) {
	rows, err := r.ReadDB().QueryContext(ctx, "SELECT key, value, updated_at FROM trigger_state ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list trigger states: %w", err)
	}
	defer rows.Close()

	var states []*contracts.TriggerState
	for rows.Next() {
		state, err := scanTriggerState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trigger state: %w", err)
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTriggerState(row rowScanner) (*contracts.TriggerState, error) {
	var state contracts.TriggerState
	if err := row.Scan(&state.Key, &state.Value, &state.UpdatedAt); err != nil {
		return nil, err
	}
	return &state, nil
}
