// Package results persists final match outcomes to Postgres when a
// DATABASE_URL is configured. Replays stay in the replay store; this table
// exists for stats queries and records forfeits, which replays do not cover.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Method distinguishes how a game ended.
const (
	MethodNatural = "natural" // win or tie on the board
	MethodForfeit = "forfeit" // an occupant left mid-game
)

// MatchResult is one completed game.
type MatchResult struct {
	Player1   string // first mover
	Player2   string
	Outcome   string // "team_a" | "team_b" | "tie"
	Method    string
	MoveCount int
	StartedAt time.Time
	EndedAt   time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult inserts one final result row.
func (r *Repository) SaveResult(ctx context.Context, m *MatchResult) error {
	if r == nil || r.db == nil || m == nil {
		return nil
	}
	const q = `INSERT INTO match_results (
	    player1, player2, outcome, method, move_count, started_at, ended_at
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.ExecContext(ctx, q,
		m.Player1, m.Player2, m.Outcome, strings.TrimSpace(m.Method),
		m.MoveCount, m.StartedAt, m.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match result: %w", err)
	}
	return nil
}
