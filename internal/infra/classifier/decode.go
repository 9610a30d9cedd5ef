package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

// predictResponse accepts both shapes seen from the service:
// {prediction, confidence: 0.87, explanations: [...]} and
// {diagnosis, probability: 87.0, confidence: "High", explanation: "...", benign_probability, malignant_probability}.
type predictResponse struct {
	Prediction           string               `json:"prediction"`
	Diagnosis            string               `json:"diagnosis"`
	Confidence           json.RawMessage      `json:"confidence"`
	Probability          *float64             `json:"probability"`
	BenignProbability    *float64             `json:"benign_probability"`
	MalignantProbability *float64             `json:"malignant_probability"`
	Explanations         []domain.Explanation `json:"explanations"`
	Explanation          string               `json:"explanation"`
}

// scale reports the unit of every score in the body. The diagnosis shape is
// produced by a service that always reports percentages; the prediction shape
// reports fractions.
func (r *predictResponse) scale() domain.Scale {
	if strings.TrimSpace(r.Diagnosis) != "" || r.Probability != nil ||
		r.BenignProbability != nil || r.MalignantProbability != nil {
		return domain.ScalePercent
	}
	return domain.ScaleFraction
}

// DecodePrediction validates a success body and converts it to a Result.
// Scores are converted to fractions here and nowhere else.
func DecodePrediction(body []byte) (*domain.Result, error) {
	var raw predictResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}

	label := raw.Prediction
	if strings.TrimSpace(label) == "" {
		label = raw.Diagnosis
	}
	diagnosis, ok := domain.ParseDiagnosis(label)
	if !ok {
		return nil, &domain.MalformedResultError{Field: "prediction"}
	}

	scale := raw.scale()
	probs := map[domain.Diagnosis]float64{}
	if raw.MalignantProbability != nil {
		v, err := scale.ToFraction(*raw.MalignantProbability)
		if err != nil {
			return nil, &domain.MalformedResultError{Field: "malignant_probability"}
		}
		probs[domain.DiagnosisMalignant] = v
	} else if raw.Probability != nil {
		// "probability" is the malignant-class score
		v, err := scale.ToFraction(*raw.Probability)
		if err != nil {
			return nil, &domain.MalformedResultError{Field: "probability"}
		}
		probs[domain.DiagnosisMalignant] = v
	}
	if raw.BenignProbability != nil {
		v, err := scale.ToFraction(*raw.BenignProbability)
		if err != nil {
			return nil, &domain.MalformedResultError{Field: "benign_probability"}
		}
		probs[domain.DiagnosisBenign] = v
	} else if m, ok := probs[domain.DiagnosisMalignant]; ok {
		probs[domain.DiagnosisBenign] = 1 - m
	}

	var (
		confidence float64
		level      string
		haveConf   bool
	)
	conf := bytes.TrimSpace(raw.Confidence)
	switch {
	case len(conf) == 0 || bytes.Equal(conf, []byte("null")):
	case conf[0] == '"':
		if err := json.Unmarshal(conf, &level); err != nil {
			return nil, &domain.MalformedResultError{Field: "confidence"}
		}
	default:
		var v float64
		if err := json.Unmarshal(conf, &v); err != nil {
			return nil, &domain.MalformedResultError{Field: "confidence"}
		}
		n, err := scale.ToFraction(v)
		if err != nil {
			return nil, err
		}
		confidence, haveConf = n, true
	}
	if !haveConf {
		p, ok := probs[diagnosis]
		if !ok {
			return nil, &domain.MalformedResultError{Field: "confidence"}
		}
		confidence = p
	}

	explanations := raw.Explanations
	if len(explanations) == 0 && strings.TrimSpace(raw.Explanation) != "" {
		explanations = []domain.Explanation{{Title: "Summary", Description: raw.Explanation}}
	}

	return domain.NewResult(domain.ResultInput{
		Diagnosis:     diagnosis,
		Confidence:    confidence,
		Level:         level,
		Probabilities: probs,
		Explanations:  explanations,
	})
}

// errorDetail pulls the "detail" string out of an error body, or "" when absent.
func errorDetail(body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &e) != nil || len(e.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(e.Detail, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
