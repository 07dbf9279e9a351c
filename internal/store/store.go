// Package store persists engine snapshots and player preferences in
// libSQL document tables.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidPreference = errors.New("invalid preference")
)

// Preference keys.
const (
	PrefLanguage            = "language"
	PrefOnboardingCompleted = "onboarding_completed"
)

type Preferences struct {
	Language            string `json:"language"`
	OnboardingCompleted bool   `json:"onboardingCompleted"`
}

func defaultPreferences() Preferences {
	return Preferences{Language: "en"}
}

// Store expects the schema from internal/migrations to be applied.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SaveState upserts the snapshot of one player's engine.
func (s *Store) SaveState(ctx context.Context, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO player_states (id, data, updated_at) VALUES (?, jsonb(?), ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		snap.Player.ID, string(data), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving state for %s: %w", snap.Player.ID, err)
	}
	return nil
}

// LoadState returns ErrNotFound when the player has never been saved.
func (s *Store) LoadState(ctx context.Context, playerID string) (engine.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM player_states WHERE id = ?`, playerID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("loading state for %s: %w", playerID, err)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decoding state for %s: %w", playerID, err)
	}
	return snap, nil
}

// GetPreferences returns the stored flags merged over the defaults.
func (s *Store) GetPreferences(ctx context.Context, playerID string) (Preferences, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM preferences WHERE player_id = ?`, playerID,
	)
	if err != nil {
		return Preferences{}, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	p := defaultPreferences()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Preferences{}, fmt.Errorf("scanning preference: %w", err)
		}
		switch key {
		case PrefLanguage:
			p.Language = value
		case PrefOnboardingCompleted:
			p.OnboardingCompleted = value == "true"
		}
	}
	return p, rows.Err()
}

// SetPreference stores a single flag. Unknown keys and values outside a
// key's domain are rejected with ErrInvalidPreference.
func (s *Store) SetPreference(ctx context.Context, playerID, key, value string) error {
	value, err := normalizePreference(key, value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO preferences (player_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(player_id, key) DO UPDATE SET value = excluded.value`,
		playerID, key, value,
	)
	if err != nil {
		return fmt.Errorf("saving preference %s: %w", key, err)
	}
	return nil
}

// SetPreferences stores every field of p.
func (s *Store) SetPreferences(ctx context.Context, playerID string, p Preferences) error {
	if err := s.SetPreference(ctx, playerID, PrefLanguage, p.Language); err != nil {
		return err
	}
	return s.SetPreference(ctx, playerID, PrefOnboardingCompleted, strconv.FormatBool(p.OnboardingCompleted))
}

func normalizePreference(key, value string) (string, error) {
	switch key {
	case PrefLanguage:
		if value == "en" || value == "ar" {
			return value, nil
		}
	case PrefOnboardingCompleted:
		if b, err := strconv.ParseBool(value); err == nil {
			return strconv.FormatBool(b), nil
		}
	default:
		return "", fmt.Errorf("%w: unknown key %q", ErrInvalidPreference, key)
	}
	return "", fmt.Errorf("%w: %s=%q", ErrInvalidPreference, key, value)
}

// Check pings the database. It satisfies health.Checker.
func (s *Store) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
