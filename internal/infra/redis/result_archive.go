package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-player/internal/domain"
)

const historyLimit = 50

// ResultArchive keeps the latest completed attempts per learner in a Redis list:
// LPUSH quiz:{quizID}:results:{learnerID} {json}
type ResultArchive struct {
	client *redis.Client
}

func NewResultArchive(client *redis.Client) *ResultArchive {
	return &ResultArchive{client: client}
}

func (a *ResultArchive) Record(ctx context.Context, result domain.ArchivedResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	key := a.key(result.QuizID, result.LearnerID)
	pipe := a.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, historyLimit-1)
	_, err = pipe.Exec(ctx)
	return err
}

// List returns results newest first.
func (a *ResultArchive) List(ctx context.Context, quizID, learnerID string) ([]domain.ArchivedResult, error) {
	raw, err := a.client.LRange(ctx, a.key(quizID, learnerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.ArchivedResult, 0, len(raw))
	for _, item := range raw {
		var result domain.ArchivedResult
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		out = append(out, result)
	}
	return out, nil
}

func (a *ResultArchive) key(quizID, learnerID string) string {
	return "quiz:" + quizID + ":results:" + learnerID
}
