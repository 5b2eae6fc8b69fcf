// ABOUTME: Tests for the reconciliation clock
// ABOUTME: Covers ticker start rules, tick counting, and regression policy
package sync

import (
	"testing"
	"time"

	"github.com/anymaplay/uptime-go/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeEpoch struct {
	set atomic.Bool
}

func (f *fakeEpoch) HasEpoch() bool { return f.set.Load() }

type recorder struct {
	updates []Update
}

func (r *recorder) record(u Update) { r.updates = append(r.updates, u) }

func newTestClock(policy RegressionPolicy) (*Clock, *schedule.Manual, *fakeEpoch, *recorder) {
	sched := schedule.NewManual()
	epoch := &fakeEpoch{}
	epoch.set.Store(true)
	rec := &recorder{}

	c := NewClock(Config{
		Policy:    policy,
		Scheduler: sched,
		Epoch:     epoch,
		OnUpdate:  rec.record,
	})
	return c, sched, epoch, rec
}

func TestTickerNotStartedBeforeReading(t *testing.T) {
	c, sched, _, rec := newTestClock(AcceptRegression)

	assert.False(t, c.Running())
	sched.Advance(10 * time.Second)

	assert.Equal(t, int64(0), c.Elapsed())
	assert.Empty(t, rec.updates)
	assert.Equal(t, 0, sched.Active())
}

func TestFirstReadingStartsTicker(t *testing.T) {
	c, sched, _, rec := newTestClock(AcceptRegression)

	c.OnAuthoritativeReading(100)

	require.True(t, c.Running())
	assert.Equal(t, 1, sched.Active())
	assert.Equal(t, []Update{{Elapsed: 100, Source: SourceReading}}, rec.updates)
}

func TestFiveTicksAdvanceByFive(t *testing.T) {
	c, sched, _, rec := newTestClock(AcceptRegression)
	c.OnAuthoritativeReading(100)
	rec.updates = nil

	sched.Advance(5 * time.Second)

	assert.Equal(t, int64(105), c.Elapsed())
	require.Len(t, rec.updates, 5)
	for i, u := range rec.updates {
		assert.Equal(t, int64(101+i), u.Elapsed)
		assert.Equal(t, SourceTick, u.Source)
	}

	readings, ticks := c.GetStats()
	assert.Equal(t, 1, readings)
	assert.Equal(t, int64(5), ticks)
}

func TestTickerStartsOnlyOnce(t *testing.T) {
	c, sched, _, _ := newTestClock(AcceptRegression)

	c.OnAuthoritativeReading(10)
	c.OnAuthoritativeReading(20)
	c.OnAuthoritativeReading(30)

	assert.Equal(t, 1, sched.Active())
	sched.Advance(time.Second)
	assert.Equal(t, int64(31), c.Elapsed())
}

func TestUnchangedReadingDoesNotNotify(t *testing.T) {
	c, sched, _, rec := newTestClock(AcceptRegression)
	c.OnAuthoritativeReading(50)
	sched.Advance(2 * time.Second)
	rec.updates = nil

	c.OnAuthoritativeReading(52)

	assert.Empty(t, rec.updates)
	assert.Equal(t, int64(52), c.Elapsed())
}

func TestZeroFirstReadingStartsTickerWithoutNotify(t *testing.T) {
	c, _, _, rec := newTestClock(AcceptRegression)

	c.OnAuthoritativeReading(0)

	assert.True(t, c.Running())
	assert.Empty(t, rec.updates)
}

func TestTickWithoutEpochIsSkipped(t *testing.T) {
	c, sched, epoch, rec := newTestClock(AcceptRegression)
	c.OnAuthoritativeReading(10)
	rec.updates = nil

	epoch.set.Store(false)
	sched.Advance(3 * time.Second)

	assert.Equal(t, int64(10), c.Elapsed())
	assert.Empty(t, rec.updates)

	epoch.set.Store(true)
	sched.Advance(time.Second)
	assert.Equal(t, int64(11), c.Elapsed())
}

// A reading that lags the local count is applied as-is under the default
// policy. The visible step back is accepted, not treated as an error.
func TestRegressionAcceptedByDefault(t *testing.T) {
	c, sched, _, rec := newTestClock(AcceptRegression)
	c.OnAuthoritativeReading(100)
	sched.Advance(3 * time.Second)
	rec.updates = nil

	c.OnAuthoritativeReading(101)

	assert.Equal(t, int64(101), c.Elapsed())
	assert.Equal(t, []Update{{Elapsed: 101, Source: SourceReading}}, rec.updates)
}

func TestRegressionHeldUnderHoldMax(t *testing.T) {
	c, sched, _, rec := newTestClock(HoldMax)
	c.OnAuthoritativeReading(100)
	sched.Advance(3 * time.Second)
	rec.updates = nil

	c.OnAuthoritativeReading(101)
	assert.Equal(t, int64(103), c.Elapsed())
	assert.Empty(t, rec.updates)

	c.OnAuthoritativeReading(200)
	assert.Equal(t, int64(200), c.Elapsed())
	assert.Len(t, rec.updates, 1)
}

func TestStopCancelsTicker(t *testing.T) {
	c, sched, _, rec := newTestClock(AcceptRegression)
	assert.True(t, c.OnAuthoritativeReading(10))
	rec.updates = nil

	c.Stop()
	c.Stop()
	sched.Advance(5 * time.Second)
	assert.False(t, c.OnAuthoritativeReading(99))
	c.OnTick()

	assert.False(t, c.Running())
	assert.Equal(t, 0, sched.Active())
	assert.Equal(t, int64(10), c.Elapsed())
	assert.Empty(t, rec.updates)
}

func TestPolicyAndSourceStrings(t *testing.T) {
	assert.Equal(t, "accept", AcceptRegression.String())
	assert.Equal(t, "max", HoldMax.String())
	assert.Equal(t, "reading", SourceReading.String())
	assert.Equal(t, "tick", SourceTick.String())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("max")
	require.NoError(t, err)
	assert.Equal(t, HoldMax, p)

	p, err = ParsePolicy("accept")
	require.NoError(t, err)
	assert.Equal(t, AcceptRegression, p)

	_, err = ParsePolicy("latest")
	assert.Error(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	c := NewClock(Config{Scheduler: schedule.NewManual()})
	c.OnAuthoritativeReading(1000)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.OnTick()
				c.Elapsed()
				c.Running()
				c.GetStats()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, int64(2000), c.Elapsed())
}
