package integrity

import (
	"fmt"
	"math"
	"time"

	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/session"
)

// Point is a 2D landmark position in normalized image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) ok() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Face carries the landmarks gaze estimation needs, as delivered by the
// client-side detector.
type Face struct {
	LeftEye  Point `json:"leftEye"`
	RightEye Point `json:"rightEye"`
	NoseTip  Point `json:"noseTip"`
}

// VideoFrame is one detection result, arriving at roughly 15-30 Hz. A
// zero timestamp means the analyzer's own clock.
type VideoFrame struct {
	Timestamp time.Time `json:"timestamp"`
	Faces     []Face    `json:"faces"`
}

// GazeDirection is the estimated gaze offset, each axis clamped to
// [-1, 1].
type GazeDirection struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VideoResult is the last analysis outcome, exposed for status queries.
// Zero faces is a no-signal state, not a violation.
type VideoResult struct {
	FaceCount   int           `json:"faceCount"`
	Gaze        GazeDirection `json:"gaze"`
	LookingAway bool          `json:"lookingAway"`
	ObservedAt  time.Time     `json:"observedAt"`
}

// VideoAnalyzer classifies face detection frames. Not safe for
// concurrent use; each session owns one behind its monitor.
type VideoAnalyzer struct {
	cfg  config.Video
	now  func() time.Time
	last VideoResult
}

func NewVideoAnalyzer(cfg config.Video) *VideoAnalyzer {
	return &VideoAnalyzer{cfg: cfg, now: time.Now}
}

// Process classifies one frame and records it as the last result.
func (a *VideoAnalyzer) Process(f VideoFrame) ([]Finding, error) {
	for _, face := range f.Faces {
		if !face.LeftEye.ok() || !face.RightEye.ok() || !face.NoseTip.ok() {
			return nil, fmt.Errorf("malformed video frame: non-finite landmark")
		}
	}
	at := f.Timestamp
	if at.IsZero() {
		at = a.now()
	}

	res := VideoResult{FaceCount: len(f.Faces), ObservedAt: at}
	var findings []Finding

	if len(f.Faces) > 1 {
		findings = append(findings, Finding{
			Type:     session.EventMultipleFaces,
			At:       at,
			Metadata: map[string]any{"faceCount": len(f.Faces)},
		})
	}

	if len(f.Faces) > 0 {
		gaze := a.estimateGaze(f.Faces[0])
		res.Gaze = gaze
		res.LookingAway = math.Abs(gaze.X) > a.cfg.GazeLimit || math.Abs(gaze.Y) > a.cfg.GazeLimit
		if res.LookingAway {
			findings = append(findings, Finding{
				Type: session.EventGazeAway,
				At:   at,
				Metadata: map[string]any{
					"direction": map[string]any{"x": gaze.X, "y": gaze.Y},
				},
			})
		}
	}

	a.last = res
	return findings, nil
}

// estimateGaze projects the nose tip's offset from the eye midpoint into
// a clamped direction.
func (a *VideoAnalyzer) estimateGaze(f Face) GazeDirection {
	cx := (f.LeftEye.X + f.RightEye.X) / 2
	cy := (f.LeftEye.Y + f.RightEye.Y) / 2
	return GazeDirection{
		X: clamp((f.NoseTip.X-cx)*a.cfg.GazeScale, -1, 1),
		Y: clamp((f.NoseTip.Y-cy)*a.cfg.GazeScale, -1, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Last returns the most recent analysis result.
func (a *VideoAnalyzer) Last() VideoResult { return a.last }

// Reset clears the last result.
func (a *VideoAnalyzer) Reset() { a.last = VideoResult{} }
