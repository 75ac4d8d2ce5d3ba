package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jay160412/jay-website/internal/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// GlobalHighscoreRepository handles the global_highscores table of the
// global highscore server. It keeps the best score per (game, username).
type GlobalHighscoreRepository struct {
	pool *pgxpool.Pool
}

// NewGlobalHighscoreRepository creates a new GlobalHighscoreRepository instance.
func NewGlobalHighscoreRepository(pool *pgxpool.Pool) *GlobalHighscoreRepository {
	return &GlobalHighscoreRepository{pool: pool}
}

// submitQuery builds the upsert that only overwrites a row when the new
// score beats the stored one.
func submitQuery(game, username string, score int64) (string, []any, error) {
	return psql.Insert("global_highscores").
		Columns("game", "username", "score", "created_at").
		Values(game, username, score, sq.Expr("NOW()")).
		Suffix(`ON CONFLICT (game, username) DO UPDATE
			SET score = EXCLUDED.score, created_at = EXCLUDED.created_at
			WHERE global_highscores.score < EXCLUDED.score`).
		ToSql()
}

// listQuery builds the ranked listing, optionally filtered by game.
func listQuery(game string, limit int) (string, []any, error) {
	q := psql.Select("username", "score", "game", "created_at").
		From("global_highscores").
		OrderBy("score DESC", "created_at ASC").
		Limit(uint64(limit))
	if game != "" {
		q = q.Where(sq.Eq{"game": game})
	}
	return q.ToSql()
}

// Submit records a score and returns the stored best for the pair together
// with whether this submission improved it.
func (r *GlobalHighscoreRepository) Submit(ctx context.Context, game, username string, score int64) (*model.GlobalHighscore, bool, error) {
	query, args, err := submitQuery(game, username, score)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build submit query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to submit highscore: %w", err)
	}

	const selectBest = `
		SELECT username, score, game, created_at
		FROM global_highscores
		WHERE game = $1 AND username = $2
	`
	var hs model.GlobalHighscore
	err = r.pool.QueryRow(ctx, selectBest, game, username).Scan(
		&hs.Username,
		&hs.Score,
		&hs.Game,
		&hs.Timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read stored highscore: %w", err)
	}

	return &hs, tag.RowsAffected() > 0, nil
}

// List returns up to limit highscores sorted by score descending.
// An empty game lists every game.
func (r *GlobalHighscoreRepository) List(ctx context.Context, game string, limit int) ([]model.GlobalHighscore, error) {
	query, args, err := listQuery(game, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list highscores: %w", err)
	}
	defer rows.Close()

	highscores := make([]model.GlobalHighscore, 0, limit)
	for rows.Next() {
		var hs model.GlobalHighscore
		if err := rows.Scan(&hs.Username, &hs.Score, &hs.Game, &hs.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan highscore: %w", err)
		}
		highscores = append(highscores, hs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating highscores: %w", err)
	}

	return highscores, nil
}
