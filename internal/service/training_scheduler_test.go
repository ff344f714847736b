package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"receiptai/internal/service"
	"receiptai/mocks"
)

func TestTrainingScheduler_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("advances_cutoff_after_publish", func(t *testing.T) {
		training := new(mocks.MockTrainingService)
		training.On("Train", mock.Anything, service.TrainInput{}).
			Return(&service.TrainResult{OK: true, ModelVersion: "v1", Collected: 3}, nil).Once()
		s := service.NewTrainingScheduler(training, service.TrainingSchedulerConfig{}, time.Time{}, nil)

		before := time.Now().UTC()
		res := s.RunOnce(ctx)
		require.NotNil(t, res)
		assert.True(t, res.OK)
		assert.False(t, s.LastRun().Before(before.Truncate(time.Second)))

		cutoff := s.LastRun()
		training.On("Train", mock.Anything, service.TrainInput{Since: cutoff.Format(time.RFC3339Nano)}).
			Return(&service.TrainResult{Reason: service.ReasonNotEnoughSamples}, nil).Once()
		res = s.RunOnce(ctx)
		require.NotNil(t, res)
		assert.False(t, res.OK)
		assert.Equal(t, cutoff, s.LastRun())
		training.AssertExpectations(t)
	})

	t.Run("failure_keeps_cutoff", func(t *testing.T) {
		since := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
		training := new(mocks.MockTrainingService)
		training.On("Train", mock.Anything, service.TrainInput{Since: "2025-10-01T00:00:00Z"}).
			Return(nil, errors.New("store down"))
		s := service.NewTrainingScheduler(training, service.TrainingSchedulerConfig{}, since, nil)

		assert.Nil(t, s.RunOnce(ctx))
		assert.Equal(t, since, s.LastRun())
	})
}

func TestTrainingScheduler_Start(t *testing.T) {
	t.Run("disabled_returns_immediately", func(t *testing.T) {
		training := new(mocks.MockTrainingService)
		s := service.NewTrainingScheduler(training, service.TrainingSchedulerConfig{}, time.Time{}, nil)

		done := make(chan struct{})
		go func() {
			s.Start(context.Background())
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Start did not return")
		}
		training.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
	})

	t.Run("runs_until_canceled", func(t *testing.T) {
		training := new(mocks.MockTrainingService)
		ran := make(chan struct{}, 16)
		training.On("Train", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { ran <- struct{}{} }).
			Return(&service.TrainResult{Reason: service.ReasonNotEnoughSamples}, nil)
		s := service.NewTrainingScheduler(training, service.TrainingSchedulerConfig{Interval: 5 * time.Millisecond}, time.Time{}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Start(ctx)
			close(done)
		}()

		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatal("scheduler never ran")
		}
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Start did not return after cancel")
		}
	})
}
