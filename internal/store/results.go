package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cortex/internal/protocol"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type GameRecord struct {
	ID          string           `json:"id"`
	BotID       string           `json:"bot_id"`
	ReplayID    string           `json:"replay_id"`
	PlayerIndex *int             `json:"player_index"`
	Usernames   []string         `json:"usernames"`
	Won         bool             `json:"won"`
	Turns       int              `json:"turns"`
	Scores      []protocol.Score `json:"scores"`
	FinishedAt  time.Time        `json:"finished_at"`
}

const recordColumns = `id, bot_id, replay_id, player_index, usernames, won, turns, scores, finished_at`

func (s *Store) RecordGame(ctx context.Context, rec GameRecord) error {
	if rec.ID == "" {
		rec.ID = recordID(rec.FinishedAt)
	}
	usernames := rec.Usernames
	if usernames == nil {
		usernames = []string{}
	}
	scores := rec.Scores
	if scores == nil {
		scores = []protocol.Score{}
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO game_results (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.BotID, rec.ReplayID, rec.PlayerIndex, usernames, rec.Won, rec.Turns, scoresJSON, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game result %s: %w", rec.ReplayID, err)
	}
	return nil
}

// ListRecent returns up to limit results for botID, newest first.
func (s *Store) ListRecent(ctx context.Context, botID string, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT `+recordColumns+` FROM game_results WHERE bot_id = $1 ORDER BY finished_at DESC, id DESC LIMIT $2`,
		botID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list game results: %w", err)
	}
	defer rows.Close()
	var out []GameRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetByReplay(ctx context.Context, replayID string) (GameRecord, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM game_results WHERE replay_id = $1 ORDER BY finished_at DESC LIMIT 1`,
		replayID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return GameRecord{}, ErrNotFound
	}
	return rec, err
}

func scanRecord(row pgx.Row) (GameRecord, error) {
	var (
		rec    GameRecord
		idx    pgtype.Int4
		scores []byte
	)
	if err := row.Scan(&rec.ID, &rec.BotID, &rec.ReplayID, &idx, &rec.Usernames, &rec.Won, &rec.Turns, &scores, &rec.FinishedAt); err != nil {
		return GameRecord{}, err
	}
	if idx.Valid {
		v := int(idx.Int32)
		rec.PlayerIndex = &v
	}
	if err := json.Unmarshal(scores, &rec.Scores); err != nil {
		return GameRecord{}, fmt.Errorf("decode scores: %w", err)
	}
	return rec, nil
}
