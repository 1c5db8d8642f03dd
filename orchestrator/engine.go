package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/interviewlab/sentinel/clients"
	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/integrity"
	"github.com/interviewlab/sentinel/session"
)

var (
	// ErrSessionEnded rejects answers submitted after the session
	// completed. Late integrity events are still accepted by the store.
	ErrSessionEnded = errors.New("session already ended")
	// ErrNotStarted rejects answers for sessions with no question posed.
	ErrNotStarted = errors.New("interview not started")
	// ErrEvaluationFailed wraps external evaluator failures, including
	// contract violations in the returned action.
	ErrEvaluationFailed = errors.New("evaluation failed")
)

// transitionText replaces the evaluator's response once the follow-up cap
// forces progression to the next question.
const transitionText = "Good effort on this question. Let's move on to the next one."

// introQuestion opens every interview before the external question source
// gets involved.
func introQuestion() session.Question {
	return session.Question{
		ID:         "intro_001",
		Stem:       "Please introduce yourself and tell me about your background, experience, and what interests you about this role.",
		Difficulty: "introduction",
		FollowUps: []string{
			"What motivated you to apply for this position?",
			"Tell me about a recent project you're proud of.",
		},
		EvaluationHints: []string{"Clear communication", "Relevant experience", "Enthusiasm"},
		RedFlags:        []string{"Unclear communication", "Lack of preparation"},
	}
}

// LLM is the slice of the external evaluation service the engine needs.
// *clients.LLM satisfies it.
type LLM interface {
	Evaluate(ctx context.Context, q session.Question, answer string, history []session.ConversationTurn) (*clients.Verdict, error)
	NextQuestion(ctx context.Context, topic, difficulty string, position int) (session.Question, error)
	GenerateReport(ctx context.Context, s *session.Session) (session.Report, error)
}

// Engine is the turn-state orchestrator: it decides what happens after
// each candidate answer and owns the follow-up cap policy. All external
// calls happen with the session lock released, re-validating on
// re-entry.
type Engine struct {
	store        *session.Store
	llm          LLM
	maxFollowUps int
	archiveDir   string
	now          func() time.Time
	log          *logrus.Entry
}

func NewEngine(store *session.Store, llm LLM, cfg *config.Root, log *logrus.Logger) *Engine {
	max := cfg.Interview.MaxFollowUps
	if max <= 0 {
		max = 2
	}
	return &Engine{
		store:        store,
		llm:          llm,
		maxFollowUps: max,
		archiveDir:   cfg.Paths.Archive,
		now:          time.Now,
		log:          log.WithField("component", "orchestrator"),
	}
}

// StartResult is what a new interview begins with.
type StartResult struct {
	Session       *session.Session
	Greeting      string
	FirstQuestion session.Question
}

// StartInterview creates the session, moves it to in_progress and poses
// the fixed introduction question.
func (e *Engine) StartInterview(candidate, topic, difficulty string, duration int) (*StartResult, error) {
	s := e.store.Create(candidate, topic, difficulty, duration)

	greeting := fmt.Sprintf(
		"Hello %s! Welcome to your %s interview for a %s level position. I'm your AI interviewer today. This interview will last approximately %d minutes. Let's start by getting to know you better. Please introduce yourself and tell me a bit about your background and experience.",
		candidate, topic, difficulty, duration)

	var first session.Question
	err := e.store.Update(s.ID, func(tx *session.Tx) error {
		if err := tx.SetStatus(session.StatusInProgress); err != nil {
			return err
		}
		tx.AppendTurn(session.ConversationTurn{
			Speaker: session.SpeakerSystem,
			Type:    session.TurnAcknowledgment,
			Text:    greeting,
		})
		first = tx.AdvanceQuestion(introQuestion())
		tx.AppendTurn(session.ConversationTurn{
			Speaker: session.SpeakerSystem,
			Type:    session.TurnQuestion,
			Text:    first.Stem,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap, err := e.store.Get(s.ID)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"session": s.ID, "topic": topic}).Info("interview started")
	return &StartResult{Session: snap, Greeting: greeting, FirstQuestion: first}, nil
}

// Result is the outcome of one answer turn.
type Result struct {
	Evaluation   *session.Evaluation `json:"evaluation"`
	NextAction   session.Action      `json:"nextAction"`
	NextQuestion *session.Question   `json:"nextQuestion,omitempty"`
	AIResponse   string              `json:"aiResponse"`
}

// SubmitAnswer runs one turn of the interview: record the answer, let
// the external evaluator judge it, apply the follow-up cap, and carry
// out the resulting action. The answer turn stays appended even when
// evaluation fails, so the candidate can retry.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, transcript string) (*Result, error) {
	var (
		question session.Question
		history  []session.ConversationTurn
	)
	err := e.store.Update(sessionID, func(tx *session.Tx) error {
		s := tx.Session()
		if s.Status == session.StatusCompleted {
			return ErrSessionEnded
		}
		q, ok := s.Current()
		if !ok {
			return ErrNotStarted
		}
		tx.AppendTurn(session.ConversationTurn{
			Speaker: session.SpeakerCandidate,
			Type:    session.TurnAnswer,
			Text:    transcript,
		})
		question = q
		history = s.Turns()
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Evaluation is blocking I/O; the session lock is not held here.
	verdict, err := e.llm.Evaluate(ctx, question, transcript, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluationFailed, err)
	}
	if !verdict.NextAction.Valid() {
		return nil, fmt.Errorf("%w: evaluator returned action %q", ErrEvaluationFailed, verdict.NextAction)
	}

	res := &Result{
		Evaluation: verdict.Evaluation,
		NextAction: verdict.NextAction,
		AIResponse: verdict.AIResponse,
	}

	// Re-enter the critical section to apply policy; the session may
	// have concluded while the evaluator ran.
	var topic, difficulty string
	var position int
	err = e.store.Update(sessionID, func(tx *session.Tx) error {
		s := tx.Session()
		if s.Status == session.StatusCompleted {
			return ErrSessionEnded
		}
		qIdx := s.CurrentQuestion
		if res.NextAction == session.ActionFollowUp {
			if s.FollowUps[qIdx] >= e.maxFollowUps {
				res.NextAction = session.ActionNextQuestion
				res.AIResponse = transitionText
			} else {
				s.FollowUps[qIdx]++
			}
		}
		turnType := session.TurnAcknowledgment
		if res.NextAction == session.ActionFollowUp {
			turnType = session.TurnFollowUp
		}
		tx.AppendTurn(session.ConversationTurn{
			Speaker:    session.SpeakerSystem,
			Type:       turnType,
			Text:       res.AIResponse,
			Evaluation: res.Evaluation,
		})
		topic, difficulty, position = s.Topic, s.Difficulty, s.CurrentQuestion+1
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.NextAction == session.ActionNextQuestion {
		q, qerr := e.llm.NextQuestion(ctx, topic, difficulty, position)
		if qerr != nil {
			// Forward progress beats a stuck session.
			e.log.WithError(qerr).WithField("session", sessionID).Warn("question source failed, ending interview")
			res.NextAction = session.ActionEndInterview
		} else {
			err = e.store.Update(sessionID, func(tx *session.Tx) error {
				if tx.Session().Status == session.StatusCompleted {
					return ErrSessionEnded
				}
				stored := tx.AdvanceQuestion(q)
				tx.AppendTurn(session.ConversationTurn{
					Speaker: session.SpeakerSystem,
					Type:    session.TurnQuestion,
					Text:    stored.Stem,
				})
				res.NextQuestion = &stored
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if res.NextAction == session.ActionEndInterview {
		if _, err := e.EndInterview(ctx, sessionID); err != nil {
			// The session is concluded regardless; the report can be
			// regenerated through the end endpoint.
			e.log.WithError(err).WithField("session", sessionID).Warn("finalizing interview failed")
		}
	}

	return res, nil
}

// EndInterview concludes the session, asks the external service for the
// final report and archives the result. Ending an already-completed
// session returns its existing report; a missing report is regenerated.
func (e *Engine) EndInterview(ctx context.Context, sessionID string) (*session.Report, error) {
	var existing *session.Report
	err := e.store.Update(sessionID, func(tx *session.Tx) error {
		s := tx.Session()
		if s.Status == session.StatusCompleted {
			existing = s.FinalReport
			return nil
		}
		return tx.SetStatus(session.StatusCompleted)
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	// Report generation is blocking I/O on a completed snapshot; no lock
	// is held.
	snap, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	report, err := e.llm.GenerateReport(ctx, snap)
	if err != nil {
		e.archive(snap)
		return nil, fmt.Errorf("generate report: %w", err)
	}
	if err := e.store.SetReport(sessionID, report); err != nil {
		return nil, err
	}
	snap.FinalReport = &report
	e.archive(snap)

	e.log.WithField("session", sessionID).Info("interview completed")
	return &report, nil
}

// LogIntegrityEvent records a client-reported integrity event with its
// looked-up severity. This path is never throttled; client-side
// detectors rate-limit before reporting.
func (e *Engine) LogIntegrityEvent(sessionID, eventType string, metadata map[string]any) (session.IntegrityEvent, error) {
	return e.store.AppendEvent(sessionID, session.IntegrityEvent{
		Type:     eventType,
		Severity: integrity.SeverityFor(eventType),
		Metadata: metadata,
	})
}

// StatusInfo is a point-in-time view of a session's progress.
type StatusInfo struct {
	Status          session.Status    `json:"status"`
	TimeRemaining   int               `json:"timeRemaining"` // minutes
	QuestionsAsked  int               `json:"questionsAsked"`
	CurrentQuestion *session.Question `json:"currentQuestion,omitempty"`
}

// Status reports a consistent snapshot of the session's progress.
func (e *Engine) Status(sessionID string) (*StatusInfo, error) {
	s, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	info := &StatusInfo{Status: s.Status, QuestionsAsked: len(s.Questions)}
	if s.StartedAt != nil {
		elapsed := int(e.now().Sub(*s.StartedAt).Minutes())
		if remaining := s.Duration - elapsed; remaining > 0 {
			info.TimeRemaining = remaining
		}
	}
	if q, ok := s.Current(); ok {
		info.CurrentQuestion = &q
	}
	return info, nil
}

func (e *Engine) archive(s *session.Session) {
	if e.archiveDir == "" || s == nil {
		return
	}
	path, err := session.WriteArchive(e.archiveDir, s)
	if err != nil {
		e.log.WithError(err).WithField("session", s.ID).Warn("failed to archive session")
		return
	}
	e.log.WithField("path", path).Debug("session archived")
}
