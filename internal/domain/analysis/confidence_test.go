package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleToFraction(t *testing.T) {
	tests := []struct {
		name    string
		scale   Scale
		in      float64
		want    float64
		wantErr bool
	}{
		{name: "fraction", scale: ScaleFraction, in: 0.87, want: 0.87},
		{name: "fraction zero", scale: ScaleFraction, in: 0, want: 0},
		{name: "fraction one", scale: ScaleFraction, in: 1, want: 1},
		{name: "fraction above one", scale: ScaleFraction, in: 87, wantErr: true},
		{name: "percent", scale: ScalePercent, in: 87, want: 0.87},
		{name: "percent below one stays small", scale: ScalePercent, in: 0.5, want: 0.005},
		{name: "percent one", scale: ScalePercent, in: 1, want: 0.01},
		{name: "hundred percent", scale: ScalePercent, in: 100, want: 1},
		{name: "above hundred", scale: ScalePercent, in: 100.5, wantErr: true},
		{name: "negative", scale: ScaleFraction, in: -0.1, wantErr: true},
		{name: "NaN", scale: ScalePercent, in: math.NaN(), wantErr: true},
		{name: "infinity", scale: ScaleFraction, in: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.scale.ToFraction(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				var mre *MalformedResultError
				assert.ErrorAs(t, err, &mre)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 87.0, Percent(0.87))
	assert.Equal(t, 92.3, Percent(0.9234))
	assert.Equal(t, 100.0, Percent(1))
	assert.Equal(t, 0.0, Percent(0))
}
