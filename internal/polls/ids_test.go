package polls

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIDFormat(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	re := regexp.MustCompile(`^poll_1718000000123_[0-9a-z]{9}$`)

	for i := 0; i < 100; i++ {
		assert.Regexp(t, re, NewID(pollPrefix, now))
	}
}

func TestNewIDUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		id := NewID(userPrefix, now)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestErrorKinds(t *testing.T) {
	err := validation("Poll is closed")
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "Poll is closed", err.Error())

	cause := assert.AnError
	err = internal("Failed to close poll", cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, KindInternal, KindOf(assert.AnError))
}
