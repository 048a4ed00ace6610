package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"quiz-player/internal/app"
	"quiz-player/internal/config"
	"quiz-player/internal/domain"
	"quiz-player/internal/logger"
	"quiz-player/internal/metrics"
	"quiz-player/internal/quiz"
)

// NewPlayCmd runs a quiz attempt interactively in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var quizID, learnerID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Log.Level == "" {
				cfg.Log.Level = "warn"
			}
			log := logger.New(cfg.Log)
			defer log.Sync()

			d, err := buildDeps(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer d.close()

			service := app.NewQuizService(d.attempts, d.quizzes, d.scorer, d.archive, metrics.NewRecorder(), log.Named("quiz"))
			return newPlayer(service, quizID, learnerID, cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz identifier")
	cmd.Flags().StringVar(&learnerID, "learner", os.Getenv("USER"), "learner identifier")
	_ = cmd.MarkFlagRequired("quiz")
	return cmd
}

const playHelp = `commands:
  n            next question
  p            previous question
  g <number>   jump to question
  a <answer>   answer (option number or text; toggles for multiple choice)
  s            submit
  r            retake after completion
  h            history of completed attempts
  q            quit`

// player is the terminal rendition of an attempt. It doubles as the notifier.
type player struct {
	service   *app.QuizService
	quizID    string
	learnerID string
	in        *bufio.Scanner
	out       io.Writer
}

func newPlayer(service *app.QuizService, quizID, learnerID string, in io.Reader, out io.Writer) *player {
	if learnerID == "" {
		learnerID = "local"
	}
	return &player{
		service:   service,
		quizID:    quizID,
		learnerID: learnerID,
		in:        bufio.NewScanner(in),
		out:       out,
	}
}

func (p *player) Success(msg string) { fmt.Fprintf(p.out, "✔ %s\n", msg) }
func (p *player) Error(msg string)   { fmt.Fprintf(p.out, "✘ %s\n", msg) }

func (p *player) run(ctx context.Context) error {
	snap, err := p.service.Start(ctx, p.quizID, p.learnerID, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "%s (%d questions)\n%s\n", snap.Title, snap.Count, playHelp)
	p.renderQuestion(snap)

	for {
		fmt.Fprint(p.out, "> ")
		if !p.in.Scan() {
			return p.in.Err()
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(p.in.Text()), " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
			continue
		case "q":
			return nil
		case "n":
			snap, err = p.service.Next(ctx, p.quizID, p.learnerID)
		case "p":
			snap, err = p.service.Previous(ctx, p.quizID, p.learnerID)
		case "g":
			n, convErr := strconv.Atoi(arg)
			if convErr != nil {
				fmt.Fprintln(p.out, "usage: g <number>")
				continue
			}
			snap, err = p.service.GoTo(ctx, p.quizID, p.learnerID, n-1)
		case "a":
			snap, err = p.service.Answer(ctx, p.quizID, p.learnerID, snap.Question.ID, optionValue(snap.Question, arg))
		case "s":
			if submitted := p.submit(ctx); submitted.AttemptID != "" {
				snap = submitted
			}
			continue
		case "r":
			snap, err = p.service.Retake(ctx, p.quizID, p.learnerID)
		case "h":
			p.renderHistory(ctx)
			continue
		default:
			fmt.Fprintln(p.out, playHelp)
			continue
		}
		if err != nil {
			fmt.Fprintf(p.out, "error: %v\n", err)
			if snap.AttemptID == "" {
				continue
			}
		}
		p.renderQuestion(snap)
	}
}

func (p *player) submit(ctx context.Context) quiz.Snapshot {
	snap, err := p.service.Submit(ctx, p.quizID, p.learnerID, false)
	var unanswered *domain.UnansweredError
	if errors.As(err, &unanswered) {
		fmt.Fprintf(p.out, "%d question(s) unanswered. Submit anyway? [y/N] ", unanswered.Count)
		if !p.in.Scan() || !strings.EqualFold(strings.TrimSpace(p.in.Text()), "y") {
			return snap
		}
		snap, err = p.service.Submit(ctx, p.quizID, p.learnerID, true)
	}
	var scoringErr *domain.ScoringError
	switch {
	case errors.As(err, &scoringErr):
		// already shown through the notifier; answers are kept for another try
	case err != nil:
		fmt.Fprintf(p.out, "error: %v\n", err)
	default:
		p.renderResult(snap)
	}
	return snap
}

func (p *player) renderQuestion(snap quiz.Snapshot) {
	q := snap.Question
	fmt.Fprintf(p.out, "\nQuestion %d/%d [%s, %d pt]\n%s\n", snap.Index+1, snap.Count, q.Type, q.PointValue(), q.Prompt)

	var selected []string
	for _, record := range snap.Answers {
		if record.QuestionID == q.ID {
			selected = record.Answer.Values()
		}
	}
	for i, opt := range q.Options {
		mark := " "
		for _, s := range selected {
			if s == opt {
				mark = "x"
			}
		}
		fmt.Fprintf(p.out, "  [%s] %d. %s\n", mark, i+1, opt)
	}
	if len(q.Options) == 0 && len(selected) > 0 {
		fmt.Fprintf(p.out, "  your answer: %s\n", strings.Join(selected, ", "))
	}

	status := fmt.Sprintf("%d unanswered", snap.Unanswered)
	if snap.Deadline != nil {
		left := time.Until(*snap.Deadline).Round(time.Second)
		if left < 0 {
			left = 0
		}
		status += fmt.Sprintf(", %s left", left)
	}
	if snap.IsLast && snap.State == quiz.InProgress {
		status += ", last question: s to submit"
	}
	fmt.Fprintf(p.out, "(%s)\n", status)
}

func (p *player) renderResult(snap quiz.Snapshot) {
	if snap.Result == nil {
		return
	}
	session, err := p.service.Session(p.quizID, p.learnerID)
	if err != nil {
		return
	}
	view := quiz.NewResultView(session.Quiz(), *snap.Result)
	result := view.Result()

	verdict := "NOT PASSED"
	if view.Passed() {
		verdict = "PASSED"
	}
	fmt.Fprintf(p.out, "\n%s: %d/%d points (%.0f%%)\n", verdict, result.Score, result.TotalPoints, result.Percentage)

	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tQUESTION\tYOUR ANSWER\tCORRECT ANSWER\tPOINTS")
	for _, row := range view.Rows() {
		if !row.HasData {
			fmt.Fprintf(tw, "%d\t%s\tno data\t\t\n", row.Number, row.Prompt)
			continue
		}
		mark := "✘"
		if row.IsCorrect {
			mark = "✔"
		}
		fmt.Fprintf(tw, "%d %s\t%s\t%s\t%s\t%d/%d\n", row.Number, mark, row.Prompt, orDash(row.UserAnswer), orDash(row.CorrectAnswer), row.PointsAwarded, row.Points)
	}
	_ = tw.Flush()
	fmt.Fprintln(p.out, "r to retake, q to quit")
}

func (p *player) renderHistory(ctx context.Context) {
	history, err := p.service.History(ctx, p.quizID, p.learnerID)
	if err != nil {
		fmt.Fprintf(p.out, "error: %v\n", err)
		return
	}
	if len(history) == 0 {
		fmt.Fprintln(p.out, "no completed attempts")
		return
	}
	for _, h := range history {
		fmt.Fprintf(p.out, "%s  %.0f%%  passed=%v\n", h.CompletedAt.Local().Format(time.DateTime), h.Result.Percentage, h.Result.Passed)
	}
}

// optionValue maps a 1-based option number to its text; anything else is used verbatim.
func optionValue(q domain.Question, arg string) string {
	if q.Type.FreeText() {
		return arg
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1]
	}
	return arg
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var _ quiz.Notifier = (*player)(nil)
