package clients

import (
	"context"
	"strings"

	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/session"
)

// --- LLM service (/api/evaluate, /api/question/generate, /api/report/generate) ---

// LLM talks to the external evaluation service that scores answers,
// generates questions and writes the final report.
type LLM struct {
	http *HTTP
	url  string
}

func NewLLM(cfg config.LLM) *LLM {
	return &LLM{
		http: NewHTTP(config.DurSeconds(cfg.TimeoutSeconds)),
		url:  strings.TrimRight(cfg.URL, "/"),
	}
}

type EvaluateReq struct {
	Question session.Question           `json:"question"`
	Answer   string                     `json:"answer"`
	History  []session.ConversationTurn `json:"history"`
}

// Verdict is the evaluator's judgment of one answer.
type Verdict struct {
	Evaluation *session.Evaluation `json:"evaluation"`
	NextAction session.Action      `json:"nextAction"`
	AIResponse string              `json:"aiResponse"`
}

// Evaluate scores an answer against the current question and the turn
// history so far, and recommends what to do next.
func (l *LLM) Evaluate(ctx context.Context, q session.Question, answer string, history []session.ConversationTurn) (*Verdict, error) {
	var out Verdict
	err := l.http.postJSON(ctx, "evaluate", l.url+"/api/evaluate", EvaluateReq{
		Question: q,
		Answer:   answer,
		History:  history,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type QuestionReq struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Position   int    `json:"position"`
}

// NextQuestion asks for the question at the given position in the
// interview.
func (l *LLM) NextQuestion(ctx context.Context, topic, difficulty string, position int) (session.Question, error) {
	var out session.Question
	err := l.http.postJSON(ctx, "question", l.url+"/api/question/generate", QuestionReq{
		Topic:      topic,
		Difficulty: difficulty,
		Position:   position,
	}, &out)
	return out, err
}

type ReportReq struct {
	Session *session.Session `json:"session"`
}

// GenerateReport synthesizes the final report from the full session.
func (l *LLM) GenerateReport(ctx context.Context, s *session.Session) (session.Report, error) {
	var out session.Report
	err := l.http.postJSON(ctx, "report", l.url+"/api/report/generate", ReportReq{Session: s}, &out)
	return out, err
}
