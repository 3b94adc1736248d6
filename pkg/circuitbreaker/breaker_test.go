package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/fjod/cartstate/pkg/logger"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func TestNew_TripsAfterConsecutiveFailures(t *testing.T) {
	s := DefaultSettings("test")
	s.ConsecutiveFailures = 3
	s.Timeout = time.Hour
	s.Logger = logger.Discard()
	cb := New[int](s)

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errUpstream })
		require.ErrorIs(t, err, errUpstream)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (int, error) { return 1, nil })
	assert.True(t, IsOpen(err))
}

func TestNew_IsSuccessfulKeepsBreakerClosed(t *testing.T) {
	errMissing := errors.New("missing")
	s := DefaultSettings("test")
	s.ConsecutiveFailures = 1
	s.Logger = logger.Discard()
	s.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errMissing) }
	cb := New[int](s)

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errMissing })
		require.ErrorIs(t, err, errMissing)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestIsOpen(t *testing.T) {
	assert.True(t, IsOpen(gobreaker.ErrOpenState))
	assert.True(t, IsOpen(gobreaker.ErrTooManyRequests))
	assert.False(t, IsOpen(errUpstream))
	assert.False(t, IsOpen(nil))
}
