package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dizzycode.xyz/trading-engine/pkg/logger"
)

type upkeepRecorder struct {
	NopRecorder
	runs   atomic.Int32
	errors atomic.Int32
}

func (r *upkeepRecorder) UpkeepRun(_ string, _ time.Duration, err error) {
	r.runs.Add(1)
	if err != nil {
		r.errors.Add(1)
	}
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	var ticks atomic.Int32
	recorder := &upkeepRecorder{}

	s := NewScheduler(logger.NewNop(), recorder,
		Task{Name: "ticker", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			ticks.Add(1)
			return nil
		}},
		Task{Name: "failing", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			return errors.New("redis down")
		}},
		Task{Name: "disabled"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	s.Wait()

	assert.GreaterOrEqual(t, recorder.errors.Load(), int32(1))
	assert.Greater(t, recorder.runs.Load(), recorder.errors.Load())
}
