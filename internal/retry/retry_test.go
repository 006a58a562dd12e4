package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestEnqueue_FirstAttemptRecorded(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	reg := NewRegistry(time.Hour, clock)

	assert.True(t, reg.Enqueue("r1"))
	assert.Equal(t, 1, reg.Len())
}

func TestEnqueue_WithinCooldownIsNoOp(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	reg := NewRegistry(time.Hour, clock)

	assert.True(t, reg.Enqueue("r1"))
	clock.t = clock.t.Add(30 * time.Minute)
	assert.False(t, reg.Enqueue("r1"))
	assert.Equal(t, 1, reg.Len())
}

func TestEnqueue_AfterCooldownRecordsAgain(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	reg := NewRegistry(time.Hour, clock)

	assert.True(t, reg.Enqueue("r1"))
	clock.t = clock.t.Add(2 * time.Hour)
	assert.True(t, reg.Enqueue("r1"))
}

func TestPurge_RemovesExpiredEntries(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	reg := NewRegistry(time.Minute, clock)

	reg.Enqueue("r1")
	clock.t = clock.t.Add(2 * time.Minute)
	reg.Purge()

	assert.Equal(t, 0, reg.Len())
}
