package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-player/internal/app"
	"quiz-player/internal/domain"
	"quiz-player/internal/infra/memory"
)

func TestWebSocketAttemptFlow(t *testing.T) {
	scorer := &fakeScorer{result: domain.QuizResult{Score: 1, TotalPoints: 1, Percentage: 100, Passed: true}}
	conn := dialAttempt(t, scorer, sampleQuiz())

	_, payload := readNext(conn, t, "state")
	if payload["state"] != "in_progress" || payload["isFirst"] != true {
		t.Fatalf("unexpected initial state %v", payload)
	}

	send(t, conn, "submit", map[string]any{"confirm": false})
	_, payload = readNext(conn, t, "confirm")
	if payload["unanswered"] != float64(2) {
		t.Fatalf("expected 2 unanswered, got %v", payload)
	}

	send(t, conn, "answer", map[string]any{"questionId": "q1", "value": "4"})
	_, payload = readNext(conn, t, "state")
	if payload["unanswered"] != float64(1) {
		t.Fatalf("expected 1 unanswered after answering, got %v", payload)
	}

	send(t, conn, "next", nil)
	_, payload = readNext(conn, t, "state")
	if payload["isLast"] != true {
		t.Fatalf("expected last question, got %v", payload)
	}

	send(t, conn, "submit", map[string]any{"confirm": true})
	seen := map[string]map[string]any{}
	for len(seen) < 3 {
		typ, body := readNext(conn, t, "")
		seen[typ] = body
	}
	if seen["notice"]["level"] != "success" {
		t.Fatalf("expected success notice, got %v", seen["notice"])
	}
	if seen["result"]["passed"] != true {
		t.Fatalf("expected passed result, got %v", seen["result"])
	}
	if seen["state"]["state"] != "completed" {
		t.Fatalf("expected completed state, got %v", seen["state"])
	}

	send(t, conn, "retake", nil)
	_, payload = readNext(conn, t, "state")
	if payload["state"] != "in_progress" || payload["index"] != float64(0) {
		t.Fatalf("expected fresh attempt, got %v", payload)
	}
}

func TestWebSocketScoringFailureNotifies(t *testing.T) {
	scorer := &fakeScorer{err: &domain.ScoringError{Status: 500, Message: "Scoring service down"}}
	conn := dialAttempt(t, scorer, sampleQuiz())
	readNext(conn, t, "state")

	send(t, conn, "answer", map[string]any{"questionId": "q1", "value": "4"})
	readNext(conn, t, "state")

	send(t, conn, "submit", map[string]any{"confirm": true})
	_, notice := readNext(conn, t, "notice")
	if notice["level"] != "error" || notice["message"] != "Scoring service down" {
		t.Fatalf("expected verbatim error notice, got %v", notice)
	}
	_, state := readNext(conn, t, "state")
	if state["state"] != "in_progress" {
		t.Fatalf("expected attempt back in progress, got %v", state)
	}
	answers, _ := state["answers"].([]any)
	if len(answers) != 1 {
		t.Fatalf("expected answers preserved, got %v", state["answers"])
	}
}

func TestWebSocketRejectsBadInput(t *testing.T) {
	conn := dialAttempt(t, &fakeScorer{}, sampleQuiz())
	readNext(conn, t, "state")

	send(t, conn, "dance", nil)
	_, payload := readNext(conn, t, "error")
	if payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error %v", payload)
	}

	send(t, conn, "answer", map[string]any{"questionId": "nope", "value": "4"})
	_, payload = readNext(conn, t, "error")
	if payload["message"] != domain.ErrQuestionNotFound.Error() {
		t.Fatalf("unexpected error %v", payload)
	}
}

func TestWebSocketSubmitsAtDeadline(t *testing.T) {
	quizzes := sampleQuiz()
	timed := quizzes["quiz-1"]
	timed.TimeLimit = domain.Duration(time.Second)
	quizzes["quiz-1"] = timed

	scorer := &fakeScorer{result: domain.QuizResult{Score: 0, TotalPoints: 1, Percentage: 0}}
	conn := dialAttempt(t, scorer, quizzes)
	_, payload := readNext(conn, t, "state")
	if payload["deadline"] == nil {
		t.Fatalf("expected deadline in state, got %v", payload)
	}

	// no client message: the time limit alone triggers the submit
	expectAutoSubmit(t, conn)

	send(t, conn, "retake", nil)
	_, payload = readNext(conn, t, "state")
	if payload["state"] != "in_progress" {
		t.Fatalf("expected fresh attempt, got %v", payload)
	}
	expectAutoSubmit(t, conn)
}

func expectAutoSubmit(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	seen := map[string]map[string]any{}
	for len(seen) < 3 {
		typ, body := readNext(conn, t, "")
		seen[typ] = body
	}
	if seen["notice"]["level"] != "success" {
		t.Fatalf("expected success notice, got %v", seen["notice"])
	}
	if _, ok := seen["result"]; !ok {
		t.Fatalf("expected result message, got %v", seen)
	}
	if seen["state"]["state"] != "completed" {
		t.Fatalf("expected completed state, got %v", seen["state"])
	}
}

func TestWebSocketDisconnectReleasesCompletedAttempt(t *testing.T) {
	service := newService(&fakeScorer{result: domain.QuizResult{Passed: true, Percentage: 100}}, sampleQuiz())

	done := dialLearner(t, service, "done")
	readNext(done, t, "state")
	send(t, done, "submit", map[string]any{"confirm": true})
	for {
		if typ, _ := readNext(done, t, ""); typ == "state" {
			break
		}
	}

	pending := dialLearner(t, service, "pending")
	readNext(pending, t, "state")

	_ = done.Close()
	_ = pending.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := service.Session("quiz-1", "done")
		if errors.Is(err, domain.ErrAttemptNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("completed attempt still held after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
	// give the pending socket's handler time to observe the close
	time.Sleep(100 * time.Millisecond)
	if _, err := service.Session("quiz-1", "pending"); err != nil {
		t.Fatalf("unfinished attempt must stay resumable, got %v", err)
	}
}

func TestServeWSRequiresParams(t *testing.T) {
	handler := NewWSHandler(nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws?quizId=quiz-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func dialAttempt(t *testing.T, scorer *fakeScorer, quizzes map[string]domain.Quiz) *websocket.Conn {
	t.Helper()
	return dialLearner(t, newService(scorer, quizzes), "u1")
}

func newService(scorer *fakeScorer, quizzes map[string]domain.Quiz) *app.QuizService {
	store := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(quizzes), time.Minute)
	return app.NewQuizService(store, quizRepo, scorer, memory.NewResultArchive(), nil, nil)
}

func dialLearner(t *testing.T, service *app.QuizService, userID string) *websocket.Conn {
	t.Helper()
	wsHandler := NewWSHandler(service, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + "/ws?quizId=quiz-1&userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	payload := map[string]any{}
	_ = json.Unmarshal(msg.Payload, &payload)
	return msg.Type, payload
}

type fakeScorer struct {
	result domain.QuizResult
	err    error
}

func (f *fakeScorer) Score(context.Context, string, []domain.AnswerRecord) (domain.QuizResult, error) {
	return f.result, f.err
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:           "quiz-1",
			Title:        "Arithmetic",
			PassingScore: 70,
			Questions: []domain.Question{
				{
					ID:      "q1",
					Prompt:  "What is 2 + 2?",
					Type:    domain.SingleChoice,
					Options: []string{"3", "4", "5"},
					Points:  1,
				},
				{
					ID:     "q2",
					Prompt: "Explain addition",
					Type:   domain.OpenEnded,
				},
			},
		},
	}
}
