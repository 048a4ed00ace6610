package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-player/internal/app"
	"quiz-player/internal/domain"
	"quiz-player/internal/quiz"
)

type WSHandler struct {
	service  *app.QuizService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type submitPayload struct {
	Confirm bool `json:"confirm"`
}

type confirmPayload struct {
	Unanswered int `json:"unanswered"`
}

type resultPayload struct {
	AttemptID string            `json:"attemptId"`
	Passed    bool              `json:"passed"`
	Result    domain.QuizResult `json:"result"`
}

type noticePayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// outbox queues messages for the single writer goroutine.
type outbox struct {
	send chan outboundMessage[any]
	done chan struct{}
	// stopDeadline cancels the pending auto-submit; owned by the read loop.
	stopDeadline func()
}

func (o *outbox) push(msgType string, payload any) {
	select {
	case o.send <- outboundMessage[any]{Type: msgType, Payload: payload}:
	case <-o.done:
	}
}

func (o *outbox) fail(err error) {
	o.push("error", errorPayload{Message: err.Error()})
}

// Success and Error make the outbox the attempt's quiz.Notifier.
func (o *outbox) Success(msg string) { o.push("notice", noticePayload{Level: "success", Message: msg}) }
func (o *outbox) Error(msg string)   { o.push("notice", noticePayload{Level: "error", Message: msg}) }

// ServeWS upgrades HTTP requests to websockets and drives one learner attempt.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	out := &outbox{
		send: make(chan outboundMessage[any], 16),
		done: make(chan struct{}),
	}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-out.send:
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug("ws write error", zap.Error(err))
					return
				}
			case <-out.done:
				return
			}
		}
	}()
	defer func() {
		close(out.done)
		<-writerDone
	}()

	ctx := r.Context()
	snap, err := h.service.Start(ctx, quizID, userID, out)
	if err != nil {
		out.fail(err)
		return
	}
	out.push("state", snap)

	out.stopDeadline = h.scheduleDeadline(quizID, userID, out)
	defer func() { out.stopDeadline() }()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, quizID, userID, inbound, out)
	}
	h.release(ctx, quizID, userID)
}

// release drops a completed attempt once its learner disconnects. Unfinished
// attempts stay so the learner can resume.
func (h *WSHandler) release(ctx context.Context, quizID, userID string) {
	session, err := h.service.Session(quizID, userID)
	if err != nil || session.State() != quiz.Completed {
		return
	}
	h.service.Abandon(ctx, quizID, userID)
}

func (h *WSHandler) dispatch(ctx context.Context, quizID, userID string, inbound inboundMessage, out *outbox) {
	var (
		snap quiz.Snapshot
		err  error
	)
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			out.fail(errors.New("invalid answer payload"))
			return
		}
		snap, err = h.service.Answer(ctx, quizID, userID, payload.QuestionID, payload.Value)
	case "next":
		snap, err = h.service.Next(ctx, quizID, userID)
	case "previous":
		snap, err = h.service.Previous(ctx, quizID, userID)
	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			out.fail(errors.New("invalid goto payload"))
			return
		}
		snap, err = h.service.GoTo(ctx, quizID, userID, payload.Index)
	case "submit":
		var payload submitPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				out.fail(errors.New("invalid submit payload"))
				return
			}
		}
		h.submit(ctx, quizID, userID, payload.Confirm, out)
		return
	case "retake":
		snap, err = h.service.Retake(ctx, quizID, userID)
		if err == nil {
			out.stopDeadline()
			out.stopDeadline = h.scheduleDeadline(quizID, userID, out)
		}
	case "history":
		history, err := h.service.History(ctx, quizID, userID)
		if err != nil {
			out.fail(err)
			return
		}
		out.push("history", history)
		return
	default:
		out.fail(errors.New("unsupported message type"))
		return
	}

	if err != nil {
		out.fail(err)
		if snap.AttemptID == "" {
			return
		}
	}
	out.push("state", snap)
}

func (h *WSHandler) submit(ctx context.Context, quizID, userID string, confirm bool, out *outbox) {
	snap, err := h.service.Submit(ctx, quizID, userID, confirm)

	var unanswered *domain.UnansweredError
	var scoringErr *domain.ScoringError
	switch {
	case errors.As(err, &unanswered):
		out.push("confirm", confirmPayload{Unanswered: unanswered.Count})
		return
	case errors.As(err, &scoringErr):
		// the notifier already told the learner
		out.push("state", snap)
		return
	case err != nil:
		out.fail(err)
		return
	}

	if snap.Result != nil {
		out.push("result", resultPayload{AttemptID: snap.AttemptID, Passed: snap.Result.Passed, Result: *snap.Result})
	}
	out.push("state", snap)
}

// scheduleDeadline submits the attempt when its time limit runs out.
func (h *WSHandler) scheduleDeadline(quizID, userID string, out *outbox) func() {
	session, err := h.service.Session(quizID, userID)
	if err != nil || session.State() == quiz.Completed {
		return func() {}
	}
	remaining, ok := session.Remaining()
	if !ok {
		return func() {}
	}
	timer := time.AfterFunc(remaining, func() {
		select {
		case <-out.done:
			return
		default:
		}
		current, err := h.service.Session(quizID, userID)
		if err != nil || current != session || current.State() != quiz.InProgress {
			return
		}
		h.log.Info("time limit reached, submitting", zap.String("quizId", quizID), zap.String("attemptId", session.ID()))
		h.submit(context.Background(), quizID, userID, true, out)
	})
	return func() { timer.Stop() }
}
