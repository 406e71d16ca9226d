package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/leadhunt/ai"
	"github.com/poiesic/leadhunt/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type tempNetErr struct{}

func (tempNetErr) Error() string   { return "temp net err" }
func (tempNetErr) Timeout() bool   { return false }
func (tempNetErr) Temporary() bool { return true }

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name          string
		in            error
		wantPermanent bool
	}{
		{name: "api_429", in: genai.APIError{Code: 429}, wantPermanent: false},
		{name: "api_500", in: genai.APIError{Code: 500}, wantPermanent: false},
		{name: "api_401", in: genai.APIError{Code: 401}, wantPermanent: true},
		{name: "net_temporary", in: tempNetErr{}, wantPermanent: false},
		{name: "plain", in: errors.New("bad request"), wantPermanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyErr(tt.in)
			require.Error(t, got)
			assert.Equal(t, tt.wantPermanent, retry.IsPermanent(got), "err=%T %v", got, got)
		})
	}

	assert.NoError(t, classifyErr(nil))
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(context.Background(), ai.NewConfig(ai.WithBackend(ai.BackendGemini)))
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	cfg := ai.NewConfig(
		ai.WithBackend(ai.BackendGemini),
		ai.WithAPIKey("test-key"),
		ai.WithModel("gemini-2.0-flash"),
	)
	provider, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.QueryCompleter())
	assert.NotNil(t, provider.RankCompleter())
}
