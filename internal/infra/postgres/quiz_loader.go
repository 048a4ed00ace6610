package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"quiz-player/internal/domain"
)

// QuizLoader loads quiz JSONB from the local catalog mirror.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// SaveQuiz upserts quiz content into the mirror.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data, updated_at) VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		quiz.ID, string(data))
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

// Upstream is the authoritative quiz source, normally the backend client.
type Upstream interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Catalog is the local copy used when the upstream is unreachable.
type Catalog interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// MirrorLoader loads from upstream and mirrors each quiz into the catalog.
// When upstream fails for reasons other than not-found, the mirror is served.
type MirrorLoader struct {
	upstream Upstream
	catalog  Catalog
	log      *zap.Logger
}

func NewMirrorLoader(upstream Upstream, catalog Catalog, log *zap.Logger) *MirrorLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &MirrorLoader{upstream: upstream, catalog: catalog, log: log}
}

func (m *MirrorLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := m.upstream.LoadQuiz(ctx, quizID)
	if err == nil {
		if saveErr := m.catalog.SaveQuiz(ctx, quiz); saveErr != nil {
			m.log.Warn("quiz mirror write failed", zap.String("quizId", quizID), zap.Error(saveErr))
		}
		return quiz, nil
	}
	if errors.Is(err, domain.ErrQuizNotFound) {
		return domain.Quiz{}, err
	}

	mirrored, mirrorErr := m.catalog.LoadQuiz(ctx, quizID)
	if mirrorErr != nil {
		return domain.Quiz{}, err
	}
	m.log.Info("serving mirrored quiz", zap.String("quizId", quizID), zap.Error(err))
	return mirrored, nil
}
