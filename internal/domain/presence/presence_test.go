package presence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAddIsIdempotent(t *testing.T) {
	user := uuid.New()
	rec := NewRecord("203.0.113.7", user)

	assert.False(t, rec.Add(user))
	assert.Len(t, rec.UserIDs, 1)

	assert.True(t, rec.Add(uuid.New()))
	assert.Len(t, rec.UserIDs, 2)
}

func TestRecomputeThreshold(t *testing.T) {
	rec := NewRecord("203.0.113.7", uuid.New())
	for i := 0; i < 4; i++ {
		rec.Add(uuid.New())
	}

	// 5 distinct users: at the threshold, not over it
	assert.False(t, rec.Recompute(5))

	rec.Add(uuid.New())
	assert.True(t, rec.Recompute(5))

	// The verdict tracks the threshold, not history
	assert.False(t, rec.Recompute(10))
}
