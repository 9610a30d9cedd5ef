package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, Register)
	assert.NotPanics(t, Register)
}

func TestBoolGauge(t *testing.T) {
	ServiceConnected.Set(BoolGauge(true))
	assert.Equal(t, 1.0, testutil.ToFloat64(ServiceConnected))
	ServiceConnected.Set(BoolGauge(false))
	assert.Equal(t, 0.0, testutil.ToFloat64(ServiceConnected))
}
