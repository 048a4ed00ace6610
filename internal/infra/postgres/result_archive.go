package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-player/internal/domain"
)

// ResultArchive stores completed attempts in quiz_attempts.
type ResultArchive struct {
	pool *pgxpool.Pool
}

func NewResultArchive(pool *pgxpool.Pool) *ResultArchive {
	return &ResultArchive{pool: pool}
}

func (a *ResultArchive) Record(ctx context.Context, result domain.ArchivedResult) error {
	data, err := json.Marshal(result.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (id, quiz_id, learner_id, score, percentage, passed, result, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
		 ON CONFLICT (id) DO NOTHING`,
		result.AttemptID, result.QuizID, result.LearnerID,
		result.Result.Score, result.Result.Percentage, result.Result.Passed,
		string(data), result.CompletedAt)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// List returns results newest first.
func (a *ResultArchive) List(ctx context.Context, quizID, learnerID string) ([]domain.ArchivedResult, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id, result, completed_at FROM quiz_attempts
		 WHERE quiz_id=$1 AND learner_id=$2
		 ORDER BY completed_at DESC`,
		quizID, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.ArchivedResult
	for rows.Next() {
		entry := domain.ArchivedResult{QuizID: quizID, LearnerID: learnerID}
		var raw []byte
		if err := rows.Scan(&entry.AttemptID, &raw, &entry.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(raw, &entry.Result); err != nil {
			return nil, fmt.Errorf("unmarshal attempt: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
