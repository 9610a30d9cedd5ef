package analysis

import (
	"strings"
	"time"
)

// Diagnosis is the closed set of labels the classifier may return.
type Diagnosis string

const (
	DiagnosisBenign    Diagnosis = "Benign"
	DiagnosisMalignant Diagnosis = "Malignant"
)

// ParseDiagnosis accepts any casing and surrounding whitespace.
func ParseDiagnosis(s string) (Diagnosis, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "benign":
		return DiagnosisBenign, true
	case "malignant":
		return DiagnosisMalignant, true
	default:
		return "", false
	}
}

// ServiceStatus connectivity of the Classification Service as of the last check.
type ServiceStatus string

const (
	StatusUnknown      ServiceStatus = "unknown"
	StatusConnected    ServiceStatus = "connected"
	StatusDisconnected ServiceStatus = "disconnected"
)

// Payload is what the caller hands in when selecting a file.
type Payload struct {
	FileName  string
	MediaType string
	Data      []byte
}

// Request is a selected image waiting to be (or being) submitted.
type Request struct {
	ID        uint64
	FileName  string
	MediaType string
	Size      int
	Data      []byte
}

// Explanation is one opaque (title, description) pair from the classifier.
type Explanation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Result is the decoded, validated response of a prediction.
// Confidence is always a fraction in [0,1].
type Result struct {
	diagnosis     Diagnosis
	confidence    float64
	level         string
	probabilities map[Diagnosis]float64
	explanations  []Explanation
}

// ResultInput carries the fields for NewResult.
type ResultInput struct {
	Diagnosis     Diagnosis
	Confidence    float64
	Level         string
	Probabilities map[Diagnosis]float64
	Explanations  []Explanation
}

// NewResult validates in and returns an immutable Result.
func NewResult(in ResultInput) (*Result, error) {
	if _, ok := ParseDiagnosis(string(in.Diagnosis)); !ok {
		return nil, &MalformedResultError{Field: "prediction"}
	}
	if !inUnitRange(in.Confidence) {
		return nil, &MalformedResultError{Field: "confidence"}
	}
	r := &Result{
		diagnosis:  in.Diagnosis,
		confidence: in.Confidence,
		level:      in.Level,
	}
	if len(in.Probabilities) > 0 {
		r.probabilities = make(map[Diagnosis]float64, len(in.Probabilities))
		for k, v := range in.Probabilities {
			if !inUnitRange(v) {
				return nil, &MalformedResultError{Field: "probabilities"}
			}
			r.probabilities[k] = v
		}
	}
	if len(in.Explanations) > 0 {
		r.explanations = append([]Explanation(nil), in.Explanations...)
	}
	return r, nil
}

func (r *Result) Diagnosis() Diagnosis { return r.diagnosis }
func (r *Result) Confidence() float64  { return r.confidence }

// Level is the service's coarse confidence label ("High", "Medium", "Low"), if it sent one.
func (r *Result) Level() string { return r.level }

// Probability returns the per-class probability when the service reported it.
func (r *Result) Probability(d Diagnosis) (float64, bool) {
	v, ok := r.probabilities[d]
	return v, ok
}

func (r *Result) Explanations() []Explanation {
	return append([]Explanation(nil), r.explanations...)
}

// HistoryEntry is one persisted analysis outcome.
type HistoryEntry struct {
	ID         int64
	FileName   string
	CreatedAt  time.Time
	Diagnosis  Diagnosis
	Confidence float64
	Result     *Result
}
