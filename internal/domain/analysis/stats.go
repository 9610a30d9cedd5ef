package analysis

// Stats summarizes a history log for the analytics view.
type Stats struct {
	Total          int     `json:"total"`
	Malignant      int     `json:"malignant"`
	Benign         int     `json:"benign"`
	MeanConfidence float64 `json:"mean_confidence"`
}

func Summarize(entries []HistoryEntry) Stats {
	var s Stats
	var sum float64
	for _, e := range entries {
		s.Total++
		sum += e.Confidence
		switch e.Diagnosis {
		case DiagnosisMalignant:
			s.Malignant++
		case DiagnosisBenign:
			s.Benign++
		}
	}
	if s.Total > 0 {
		s.MeanConfidence = sum / float64(s.Total)
	}
	return s
}
