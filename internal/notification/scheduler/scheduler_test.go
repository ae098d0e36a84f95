package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) ProcessDue(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestSweepScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewSweepScheduler(sweeper, 10*time.Millisecond)

	s.Start()
	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	after := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sweeper.calls.Load(), "no sweeps after Stop")
}

func TestSweepScheduler_ErrorsDoNotStopTheLoop(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("store down")}
	s := NewSweepScheduler(sweeper, 10*time.Millisecond)

	s.Start()
	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestSweepScheduler_StopIsIdempotent(t *testing.T) {
	s := NewSweepScheduler(&countingSweeper{}, time.Hour)
	s.Start()

	s.Stop()
	s.Stop()
}

func TestSweepScheduler_StopWithoutStart(t *testing.T) {
	s := NewSweepScheduler(&countingSweeper{}, 0)

	s.Stop()

	assert.Equal(t, 15*time.Minute, s.interval)
}

func TestSweepScheduler_StartAfterStopDoesNothing(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewSweepScheduler(sweeper, time.Millisecond)

	s.Stop()
	s.Start()
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, sweeper.calls.Load())
}

func TestSweepScheduler_ConcurrentStartAndStop(t *testing.T) {
	s := NewSweepScheduler(&countingSweeper{}, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Start()
		}()
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()
	s.Stop()
}
