package session

import "time"

// Status is the lifecycle state of an interview session. Transitions only
// move forward: waiting → in_progress → completed.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerSystem    Speaker = "system"
	SpeakerCandidate Speaker = "candidate"
)

// TurnType classifies a conversation turn.
type TurnType string

const (
	TurnQuestion       TurnType = "question"
	TurnAnswer         TurnType = "answer"
	TurnFollowUp       TurnType = "follow_up"
	TurnAcknowledgment TurnType = "acknowledgment"
)

// Action is the next step recommended by the evaluator (or forced by
// policy) after an answer.
type Action string

const (
	ActionFollowUp     Action = "follow_up"
	ActionNextQuestion Action = "next_question"
	ActionEndInterview Action = "end_interview"
)

// Valid reports whether a is one of the three actions the evaluator
// contract allows. Anything else is a contract violation.
func (a Action) Valid() bool {
	switch a {
	case ActionFollowUp, ActionNextQuestion, ActionEndInterview:
		return true
	}
	return false
}

// Severity ranks an integrity event. It is a pure function of the event
// type, independent of context.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Integrity event types. TAB_SWITCH, WINDOW_BLUR and LARGE_PASTE are
// reported by the client; the rest are produced by the signal analyzers.
const (
	EventTabSwitch        = "TAB_SWITCH"
	EventWindowBlur       = "WINDOW_BLUR"
	EventMultipleFaces    = "MULTIPLE_FACES"
	EventGazeAway         = "GAZE_AWAY"
	EventLargePaste       = "LARGE_PASTE"
	EventProlongedSilence = "PROLONGED_SILENCE"
	EventSuddenAudioSpike = "SUDDEN_AUDIO_SPIKE"
	EventBackgroundSpeech = "POSSIBLE_BACKGROUND_SPEECH"
	EventLongSilenceEnded = "LONG_SILENCE_ENDED"
)

// Question is one interview question. Immutable once asked.
type Question struct {
	ID              string     `json:"id"`
	Stem            string     `json:"stem"`
	Difficulty      string     `json:"difficulty"`
	FollowUps       []string   `json:"followUps,omitempty"`
	EvaluationHints []string   `json:"evaluationHints,omitempty"`
	RedFlags        []string   `json:"redFlags,omitempty"`
	Asked           bool       `json:"asked"`
	AskedAt         *time.Time `json:"askedAt,omitempty"`
}

// Evaluation scores an answer on four 1-5 axes. Produced externally and
// immutable once attached to a turn.
type Evaluation struct {
	Correctness   int    `json:"correctness"`
	Communication int    `json:"communication"`
	Approach      int    `json:"approach"`
	EdgeCases     int    `json:"edgeCases"`
	Notes         string `json:"notes"`
}

// ConversationTurn is one exchange in the interview. Append-only; the
// timestamp is assigned by the store when the turn is serialized.
type ConversationTurn struct {
	Timestamp  time.Time   `json:"timestamp"`
	Speaker    Speaker     `json:"speaker"`
	Text       string      `json:"text"`
	Type       TurnType    `json:"type"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// IntegrityEvent records a possible cheating signal. Append-only and
// immutable once appended.
type IntegrityEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Severity  Severity       `json:"severity"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// EntryKind discriminates the two kinds of timeline entries.
type EntryKind string

const (
	EntryTurn  EntryKind = "turn"
	EntryEvent EntryKind = "integrity_event"
)

// TimelineEntry is one element of a session's merged, append-only log of
// conversation turns and integrity events. Seq strictly increases per
// session; timestamps never decrease.
type TimelineEntry struct {
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      EntryKind         `json:"kind"`
	Turn      *ConversationTurn `json:"turn,omitempty"`
	Event     *IntegrityEvent   `json:"event,omitempty"`
}

// Report is the final interview report. Its content is synthesized by the
// external report service; the session only carries it.
type Report struct {
	SessionID       string             `json:"sessionId"`
	CandidateName   string             `json:"candidateName"`
	Topic           string             `json:"topic"`
	Difficulty      string             `json:"difficulty"`
	Duration        int                `json:"duration"`
	QuestionsAsked  int                `json:"questionsAsked"`
	OverallScore    float64            `json:"overallScore"`
	Scores          map[string]float64 `json:"scores,omitempty"`
	Strengths       []string           `json:"strengths,omitempty"`
	Weaknesses      []string           `json:"weaknesses,omitempty"`
	IntegrityScore  float64            `json:"integrityScore"`
	IntegrityIssues int                `json:"integrityIssues"`
	Recommendation  string             `json:"recommendation"`
	GeneratedAt     time.Time          `json:"generatedAt"`
}

// Session is one interview. A session is mutated by a single logical
// writer at a time; readers get deep-copied snapshots.
type Session struct {
	ID              string          `json:"id"`
	Candidate       string          `json:"candidateName"`
	Topic           string          `json:"topic"`
	Difficulty      string          `json:"difficulty"`
	Duration        int             `json:"duration"` // minutes
	Status          Status          `json:"status"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	EndedAt         *time.Time      `json:"endedAt,omitempty"`
	CurrentQuestion int             `json:"currentQuestion"`
	Questions       []Question      `json:"questions"`
	Timeline        []TimelineEntry `json:"timeline"`
	FollowUps       map[int]int     `json:"followUpCounts"` // question index → follow-ups used
	FinalReport     *Report         `json:"finalReport,omitempty"`
}

// Turns extracts the conversation turns from the timeline, in order.
func (s *Session) Turns() []ConversationTurn {
	out := make([]ConversationTurn, 0, len(s.Timeline))
	for _, e := range s.Timeline {
		if e.Kind == EntryTurn && e.Turn != nil {
			out = append(out, *e.Turn)
		}
	}
	return out
}

// Events extracts the integrity events from the timeline, in order.
func (s *Session) Events() []IntegrityEvent {
	var out []IntegrityEvent
	for _, e := range s.Timeline {
		if e.Kind == EntryEvent && e.Event != nil {
			out = append(out, *e.Event)
		}
	}
	return out
}

// Current returns the question at the current index, if any.
func (s *Session) Current() (Question, bool) {
	if len(s.Questions) == 0 || s.CurrentQuestion < 0 || s.CurrentQuestion >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentQuestion], true
}

// clone makes a deep copy so snapshots never alias store-owned memory.
func (s *Session) clone() *Session {
	cp := *s
	if s.StartedAt != nil {
		t := *s.StartedAt
		cp.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	cp.Questions = make([]Question, len(s.Questions))
	copy(cp.Questions, s.Questions)
	cp.Timeline = make([]TimelineEntry, len(s.Timeline))
	for i, e := range s.Timeline {
		cp.Timeline[i] = e
		if e.Turn != nil {
			t := *e.Turn
			cp.Timeline[i].Turn = &t
		}
		if e.Event != nil {
			ev := *e.Event
			md := make(map[string]any, len(ev.Metadata))
			for k, v := range ev.Metadata {
				md[k] = v
			}
			ev.Metadata = md
			cp.Timeline[i].Event = &ev
		}
	}
	cp.FollowUps = make(map[int]int, len(s.FollowUps))
	for k, v := range s.FollowUps {
		cp.FollowUps[k] = v
	}
	if s.FinalReport != nil {
		r := *s.FinalReport
		cp.FinalReport = &r
	}
	return &cp
}
