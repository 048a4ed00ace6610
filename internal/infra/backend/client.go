package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"quiz-player/internal/domain"
)

// envelope is the backend's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type submitRequest struct {
	Answers []domain.AnswerRecord `json:"answers"`
}

// Client talks to the platform REST API. It loads quizzes and scores attempts.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// LoadQuiz fetches a quiz for playing. Correct answers are not part of the payload.
func (c *Client) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	status, err := c.do(ctx, http.MethodGet, "/quizzes/"+url.PathEscape(quizID), nil, &quiz)
	if status == http.StatusNotFound {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	return quiz, nil
}

// Score submits answers and returns the backend's verdict. Failures are
// returned as *domain.ScoringError with the backend message untouched.
func (c *Client) Score(ctx context.Context, quizID string, answers []domain.AnswerRecord) (domain.QuizResult, error) {
	if answers == nil {
		answers = []domain.AnswerRecord{}
	}
	var result domain.QuizResult
	if _, err := c.do(ctx, http.MethodPost, "/quizzes/"+url.PathEscape(quizID)+"/submit", submitRequest{Answers: answers}, &result); err != nil {
		return domain.QuizResult{}, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, &domain.ScoringError{Message: "could not reach the server, please try again", Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		c.log.Warn("backend rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", env.Message),
		)
		return resp.StatusCode, &domain.ScoringError{Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return resp.StatusCode, &domain.ScoringError{Status: resp.StatusCode, Message: "unexpected response from server", Err: decodeErr}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, &domain.ScoringError{Status: resp.StatusCode, Message: "unexpected response from server", Err: err}
		}
	}
	return resp.StatusCode, nil
}
