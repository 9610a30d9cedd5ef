package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiagnosis(t *testing.T) {
	for _, s := range []string{"Benign", "benign", " BENIGN "} {
		d, ok := ParseDiagnosis(s)
		assert.True(t, ok, s)
		assert.Equal(t, DiagnosisBenign, d)
	}
	d, ok := ParseDiagnosis("malignant")
	assert.True(t, ok)
	assert.Equal(t, DiagnosisMalignant, d)

	_, ok = ParseDiagnosis("Unknown")
	assert.False(t, ok)
	_, ok = ParseDiagnosis("")
	assert.False(t, ok)
}

func TestNewResult(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		res, err := NewResult(ResultInput{
			Diagnosis:     DiagnosisMalignant,
			Confidence:    0.91,
			Level:         "High",
			Probabilities: map[Diagnosis]float64{DiagnosisMalignant: 0.91, DiagnosisBenign: 0.09},
			Explanations:  []Explanation{{Title: "Nuclei", Description: "Enlarged nuclei"}},
		})
		require.NoError(t, err)
		assert.Equal(t, DiagnosisMalignant, res.Diagnosis())
		assert.Equal(t, 0.91, res.Confidence())
		assert.Equal(t, "High", res.Level())
		p, ok := res.Probability(DiagnosisBenign)
		assert.True(t, ok)
		assert.Equal(t, 0.09, p)
		assert.Len(t, res.Explanations(), 1)
	})

	t.Run("rejects unknown label", func(t *testing.T) {
		_, err := NewResult(ResultInput{Diagnosis: "Cat", Confidence: 0.5})
		var mre *MalformedResultError
		require.ErrorAs(t, err, &mre)
		assert.Equal(t, "prediction", mre.Field)
	})

	t.Run("rejects confidence outside unit range", func(t *testing.T) {
		_, err := NewResult(ResultInput{Diagnosis: DiagnosisBenign, Confidence: 87})
		var mre *MalformedResultError
		require.ErrorAs(t, err, &mre)
		assert.Equal(t, "confidence", mre.Field)
	})

	t.Run("rejects bad probability", func(t *testing.T) {
		_, err := NewResult(ResultInput{
			Diagnosis:     DiagnosisBenign,
			Confidence:    0.5,
			Probabilities: map[Diagnosis]float64{DiagnosisBenign: 1.5},
		})
		assert.Error(t, err)
	})
}

func TestResultIsImmutable(t *testing.T) {
	in := []Explanation{{Title: "a", Description: "b"}}
	res, err := NewResult(ResultInput{Diagnosis: DiagnosisBenign, Confidence: 0.7, Explanations: in})
	require.NoError(t, err)

	in[0].Title = "changed"
	got := res.Explanations()
	got[0].Description = "changed too"

	assert.Equal(t, []Explanation{{Title: "a", Description: "b"}}, res.Explanations())
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, &InvalidInputError{Reason: "x"}, ErrInvalidInput)
	assert.ErrorIs(t, &NotReadyError{Reason: "x"}, ErrNotReady)
	assert.ErrorIs(t, &AlreadyInFlightError{RequestID: 1}, ErrAlreadyInFlight)
	assert.ErrorIs(t, &PersistenceWarning{}, ErrPersistence)
	assert.ErrorIs(t, &NotSignedInError{}, ErrNotSignedIn)

	f := NewAnalysisFailed("", assert.AnError)
	assert.ErrorIs(t, f, ErrAnalysisFailed)
	assert.ErrorIs(t, f, assert.AnError)
	assert.Equal(t, DefaultFailureMessage, f.Error())
	assert.Equal(t, "Model not loaded", NewAnalysisFailed("Model not loaded", nil).Error())
}
