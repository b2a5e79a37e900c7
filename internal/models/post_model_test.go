package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(PostStatusScheduled, PostStatusPending))
	assert.True(t, CanTransition(PostStatusScheduled, PostStatusDraft))
	assert.True(t, CanTransition(PostStatusFailed, PostStatusPending))
	assert.True(t, CanTransition(PostStatusPending, PostStatusPublished))

	assert.False(t, CanTransition(PostStatusPending, PostStatusDraft))
	assert.False(t, CanTransition(PostStatusPublished, PostStatusScheduled))
	assert.False(t, CanTransition(PostStatusDraft, PostStatusPending))
}
