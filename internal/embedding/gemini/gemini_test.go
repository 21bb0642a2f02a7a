package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "")

	_, err := NewClient(context.Background(), Config{APIKeyEnv: "TEST_GEMINI_KEY"}, nil)

	assert.EqualError(t, err, "missing API key in env TEST_GEMINI_KEY")
}

func TestToFloat64(t *testing.T) {
	assert.Equal(t, []float64{0.5, -1}, toFloat64([]float32{0.5, -1}))
}
