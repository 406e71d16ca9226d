package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCompleter_Reply(t *testing.T) {
	m := NewMockCompleter(`["a"]`)

	reply, err := m.Complete(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, reply)
	assert.Equal(t, 1, m.CallCount())
	assert.Equal(t, "p1", m.LastPrompt())
}

func TestMockCompleter_Func(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockCompleter("").WithCompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	})

	_, err := m.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, boom)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	assert.Empty(t, m.LastPrompt())
	reply, err := m.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)

	_, err := p.QueryCompleter().Complete(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1, p.GetMockQuery().CallCount())
	assert.Equal(t, 0, p.GetMockRank().CallCount())
	assert.NoError(t, p.Close())
}
