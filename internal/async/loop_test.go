package async

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitRunsToCompletion(t *testing.T) {
	loop := NewLoop()
	task := loop.NewTask("answer", func(t *Task) (any, error) {
		return 42, nil
	})

	outcome := loop.Await(task)

	require.Equal(t, Done, outcome)
	result, err := task.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestAwaitWithYields(t *testing.T) {
	loop := NewLoop()
	steps := 0
	task := loop.NewTask("stepper", func(t *Task) (any, error) {
		for i := 0; i < 3; i++ {
			steps++
			if err := t.Yield(); err != nil {
				return nil, err
			}
		}
		return steps, nil
	})

	outcome := loop.Await(task)

	require.Equal(t, Done, outcome)
	assert.Equal(t, 3, steps)
}

func TestCallSoonFIFO(t *testing.T) {
	loop := NewLoop()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		loop.CallSoon(loop.NewTask(name, func(t *Task) (any, error) {
			order = append(order, name)
			return nil, nil
		}))
	}

	loop.Run()

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTimersFireInDeadlineOrder(t *testing.T) {
	loop := NewLoop()
	var order []string
	mk := func(name string) *Task {
		return loop.NewTask(name, func(t *Task) (any, error) {
			order = append(order, name)
			return nil, nil
		})
	}

	loop.CallLater(30*time.Millisecond, mk("late"))
	loop.CallLater(5*time.Millisecond, mk("early"))
	loop.CallLater(15*time.Millisecond, mk("middle"))

	loop.Run()

	assert.Equal(t, []string{"early", "middle", "late"}, order)
}

func TestCancelObservedAtSuspensionPoint(t *testing.T) {
	loop := NewLoop()
	reachedEnd := false
	task := loop.NewTask("victim", func(t *Task) (any, error) {
		if err := t.Yield(); err != nil {
			return nil, err
		}
		reachedEnd = true
		return nil, nil
	})

	// Cancel before the task ever runs; it observes the flag at its
	// first suspension point and exits.
	loop.Cancel(task)
	outcome := loop.Await(task)

	require.Equal(t, Cancelled, outcome)
	assert.False(t, reachedEnd)
}

func TestAwaitTimeoutDoesNotCancel(t *testing.T) {
	loop := NewLoop()
	task := loop.NewTask("slow", func(t *Task) (any, error) {
		for i := 0; i < 1000; i++ {
			time.Sleep(time.Millisecond)
			if err := t.Yield(); err != nil {
				return nil, err
			}
		}
		return "done", nil
	})

	outcome := loop.AwaitTimeout(task, 5*time.Millisecond)

	require.Equal(t, TimedOut, outcome)
	// The task itself is still pending, not cancelled.
	assert.Equal(t, Pending, task.Outcome())
}

func TestStopUnwindsWithoutRunning(t *testing.T) {
	loop := NewLoop()
	ran := false
	loop.CallSoon(loop.NewTask("never", func(t *Task) (any, error) {
		ran = true
		return nil, nil
	}))

	loop.Stop()
	loop.Run()

	assert.False(t, ran)
}

func TestFailedTask(t *testing.T) {
	loop := NewLoop()
	task := loop.NewTask("boom", func(t *Task) (any, error) {
		return nil, assert.AnError
	})

	outcome := loop.Await(task)

	require.Equal(t, Failed, outcome)
	_, err := task.Result()
	assert.ErrorIs(t, err, assert.AnError)
}
