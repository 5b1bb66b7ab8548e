package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSweepRepo struct {
	mock.Mock
}

func (m *mockSweepRepo) DeactivateLapsed(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSweepRepo) CountActive(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[string]int64)
	return counts, args.Error(1)
}

func TestSweeperSweepOnce(t *testing.T) {
	repo := new(mockSweepRepo)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	repo.On("DeactivateLapsed", mock.Anything, now).Return(int64(2), nil).Once()
	repo.On("DeactivateLapsed", mock.Anything, now).Return(int64(0), errors.New("timeout")).Once()

	s := NewSweeper(repo, time.Minute)
	s.now = func() time.Time { return now }

	n, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.SweepOnce(context.Background())
	assert.Error(t, err)
	repo.AssertExpectations(t)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	repo := new(mockSweepRepo)
	repo.On("DeactivateLapsed", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()

	s := NewSweeper(repo, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
