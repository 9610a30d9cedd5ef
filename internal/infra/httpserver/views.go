package httpserver

import (
	"time"

	appsession "github.com/bryanwahyu/metaselect/internal/application/session"
	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

type resultView struct {
	Prediction        domain.Diagnosis     `json:"prediction"`
	Confidence        float64              `json:"confidence"`
	ConfidencePercent float64              `json:"confidence_percent"`
	Level             string               `json:"level,omitempty"`
	Probabilities     map[string]float64   `json:"probabilities,omitempty"`
	Explanations      []domain.Explanation `json:"explanations"`
}

type entryView struct {
	ID         int64            `json:"id"`
	FileName   string           `json:"file_name"`
	Timestamp  time.Time        `json:"timestamp"`
	Prediction domain.Diagnosis `json:"prediction"`
	Confidence float64          `json:"confidence"`
	Results    *resultView      `json:"results,omitempty"`
}

type outcomeView struct {
	RequestID uint64      `json:"request_id"`
	Result    *resultView `json:"result"`
	Entry     entryView   `json:"entry"`
	Warning   string      `json:"warning,omitempty"`
}

type stateView struct {
	appsession.State
	Last *outcomeView `json:"last,omitempty"`
}

func newResultView(r *domain.Result) *resultView {
	if r == nil {
		return nil
	}
	v := &resultView{
		Prediction:        r.Diagnosis(),
		Confidence:        r.Confidence(),
		ConfidencePercent: domain.Percent(r.Confidence()),
		Level:             r.Level(),
		Explanations:      r.Explanations(),
	}
	if v.Explanations == nil {
		v.Explanations = []domain.Explanation{}
	}
	for _, d := range []domain.Diagnosis{domain.DiagnosisBenign, domain.DiagnosisMalignant} {
		if p, ok := r.Probability(d); ok {
			if v.Probabilities == nil {
				v.Probabilities = make(map[string]float64, 2)
			}
			v.Probabilities[string(d)] = p
		}
	}
	return v
}

func newEntryView(e domain.HistoryEntry) entryView {
	return entryView{
		ID:         e.ID,
		FileName:   e.FileName,
		Timestamp:  e.CreatedAt.UTC(),
		Prediction: e.Diagnosis,
		Confidence: e.Confidence,
		Results:    newResultView(e.Result),
	}
}

func newOutcomeView(o *appsession.Outcome) *outcomeView {
	if o == nil {
		return nil
	}
	v := &outcomeView{
		RequestID: o.RequestID,
		Result:    newResultView(o.Result),
		Entry:     newEntryView(o.Entry),
	}
	if o.Warning != nil {
		v.Warning = o.Warning.Error()
	}
	return v
}

func newStateView(st appsession.State) stateView {
	return stateView{State: st, Last: newOutcomeView(st.Last)}
}
