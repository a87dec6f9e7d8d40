package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyDisabled(t *testing.T) {
	provider := &FakeProvider{}
	notifier := NewNotifierWithProvider(Config{Enabled: false}, provider)

	require.NoError(t, notifier.Notify("codemend", "done"))
	assert.Zero(t, provider.CallCount())
}

func TestNotifyEnabled(t *testing.T) {
	provider := &FakeProvider{}
	notifier := NewNotifierWithProvider(Config{Enabled: true}, provider)

	require.NoError(t, notifier.Notify("codemend", "fixed 3 of 5 issues"))
	require.Equal(t, 1, provider.CallCount())
	assert.Equal(t, "codemend", provider.Calls[0].Title)
	assert.Equal(t, "fixed 3 of 5 issues", provider.Calls[0].Message)
}
