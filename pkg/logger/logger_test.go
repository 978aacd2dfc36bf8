package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFallsBackOnUnknownLevel(t *testing.T) {
	log := New("test", "loud")
	assert.NotNil(t, log)
	log.Info("hello", String("k", "v"))
}

func TestNopWith(t *testing.T) {
	log := NewNop().With(Int64("ride_id", 7))
	log.Error("boom", Error(errors.New("x")))
	assert.NoError(t, NewNop().Sync())
}
