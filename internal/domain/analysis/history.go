package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// DefaultHistoryCapacity is the number of entries kept in a history log.
const DefaultHistoryCapacity = 10

type resultRecord struct {
	Prediction    string                `json:"prediction"`
	Confidence    float64               `json:"confidence"`
	Level         string                `json:"level,omitempty"`
	Probabilities map[Diagnosis]float64 `json:"probabilities,omitempty"`
	Explanations  []Explanation         `json:"explanations,omitempty"`
}

type entryRecord struct {
	ID         int64         `json:"id"`
	FileName   string        `json:"fileName"`
	Timestamp  time.Time     `json:"timestamp"`
	Prediction string        `json:"prediction"`
	Confidence float64       `json:"confidence"`
	Results    *resultRecord `json:"results"`
}

// EncodeHistory serializes a log for a HistoryStore.
func EncodeHistory(entries []HistoryEntry) ([]byte, error) {
	out := make([]entryRecord, 0, len(entries))
	for _, e := range entries {
		rec := entryRecord{
			ID:         e.ID,
			FileName:   e.FileName,
			Timestamp:  e.CreatedAt.UTC(),
			Prediction: string(e.Diagnosis),
			Confidence: e.Confidence,
		}
		if e.Result != nil {
			rec.Results = &resultRecord{
				Prediction:    string(e.Result.diagnosis),
				Confidence:    e.Result.confidence,
				Level:         e.Result.level,
				Probabilities: e.Result.probabilities,
				Explanations:  e.Result.explanations,
			}
		}
		out = append(out, rec)
	}
	return json.Marshal(out)
}

// DecodeHistory parses a stored log. Any invalid entry makes the whole payload
// ErrCorruptHistory; the returned log is ordered newest first.
func DecodeHistory(b []byte) ([]HistoryEntry, error) {
	var recs []entryRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	out := make([]HistoryEntry, 0, len(recs))
	for i, rec := range recs {
		e, err := rec.toEntry()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptHistory, i, err)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (rec entryRecord) toEntry() (HistoryEntry, error) {
	if rec.ID <= 0 {
		return HistoryEntry{}, fmt.Errorf("missing id")
	}
	if rec.Results == nil {
		return HistoryEntry{}, fmt.Errorf("missing results")
	}
	d, ok := ParseDiagnosis(rec.Prediction)
	if !ok {
		return HistoryEntry{}, fmt.Errorf("unknown prediction %q", rec.Prediction)
	}
	rd, ok := ParseDiagnosis(rec.Results.Prediction)
	if !ok {
		return HistoryEntry{}, fmt.Errorf("unknown result prediction %q", rec.Results.Prediction)
	}
	res, err := NewResult(ResultInput{
		Diagnosis:     rd,
		Confidence:    rec.Results.Confidence,
		Level:         rec.Results.Level,
		Probabilities: rec.Results.Probabilities,
		Explanations:  rec.Results.Explanations,
	})
	if err != nil {
		return HistoryEntry{}, err
	}
	if !inUnitRange(rec.Confidence) {
		return HistoryEntry{}, fmt.Errorf("confidence out of range")
	}
	return HistoryEntry{
		ID:         rec.ID,
		FileName:   rec.FileName,
		CreatedAt:  rec.Timestamp,
		Diagnosis:  d,
		Confidence: rec.Confidence,
		Result:     res,
	}, nil
}
