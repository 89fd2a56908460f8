package stt_gateway

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnivade/stt_gateway/audio"
	"github.com/agnivade/stt_gateway/filter"
	"github.com/agnivade/stt_gateway/logger"
	"github.com/agnivade/stt_gateway/providers"
	"github.com/agnivade/stt_gateway/queue"
)

type dispatcherHarness struct {
	queue  *queue.Queue[Job]
	cancel context.CancelFunc
	done   chan error
}

func runDispatcher(t *testing.T, workers int, engine providers.Engine) *dispatcherHarness {
	t.Helper()

	m := newTestMetrics()
	q := queue.New[Job](0)
	w := NewWorker(audio.NewWAVDecoder(), engine, filter.Default, defaultOptions, 0, logger.Nop(), m)
	d := NewDispatcher(q, w, workers, logger.Nop(), m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	h := &dispatcherHarness{queue: q, cancel: cancel, done: done}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("dispatcher did not stop")
		}
	})
	return h
}

func TestDispatcher_DeliversEveryJobOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			h := runDispatcher(t, workers, &fakeEngine{})
			sender := &recordingSender{id: "s1"}

			const n = 40
			want := make([]string, 0, n)
			for i := 1; i <= n; i++ {
				require.NoError(t, h.queue.Push(Job{Conn: sender, Payload: clip(t, i), Seq: uint64(i)}))
				want = append(want, fmt.Sprintf("job %d", i))
			}

			assert.Eventually(t, func() bool {
				return len(sender.Texts()) == n
			}, 5*time.Second, 10*time.Millisecond)

			got := sender.Texts()
			sort.Strings(got)
			sort.Strings(want)
			assert.Equal(t, want, got)
		})
	}
}

func TestDispatcher_PoolBoundsConcurrency(t *testing.T) {
	engine := &fakeEngine{delay: 20 * time.Millisecond}
	h := runDispatcher(t, 2, engine)
	sender := &recordingSender{id: "s1"}

	for i := 1; i <= 10; i++ {
		require.NoError(t, h.queue.Push(Job{Conn: sender, Payload: clip(t, i)}))
	}

	assert.Eventually(t, func() bool {
		return len(sender.Texts()) == 10
	}, 5*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, engine.Peak(), 2)
}

func TestDispatcher_PerJobModeDoesNotWait(t *testing.T) {
	engine := &fakeEngine{delay: 200 * time.Millisecond}
	h := runDispatcher(t, 0, engine)
	sender := &recordingSender{id: "s1"}

	for i := 1; i <= 5; i++ {
		require.NoError(t, h.queue.Push(Job{Conn: sender, Payload: clip(t, i)}))
	}

	// Every job is taken off the queue while the first is still running.
	assert.Eventually(t, func() bool {
		return engine.Peak() == 5
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.queue.Len())
}

func TestDispatcher_SerializedEngineRunsOneAtATime(t *testing.T) {
	engine := &fakeEngine{delay: 10 * time.Millisecond}
	h := runDispatcher(t, 0, providers.Serialize(engine, 1))
	sender := &recordingSender{id: "s1"}

	for i := 1; i <= 8; i++ {
		require.NoError(t, h.queue.Push(Job{Conn: sender, Payload: clip(t, i)}))
	}

	assert.Eventually(t, func() bool {
		return len(sender.Texts()) == 8
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, engine.Peak())
}

func TestDispatcher_StopsOnCancel(t *testing.T) {
	h := runDispatcher(t, 3, &fakeEngine{})

	h.cancel()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run() should return after cancel")
	}
	// Cleanup must not block on an already stopped dispatcher.
	h.done <- nil
}

func TestDispatcher_StopsOnQueueClose(t *testing.T) {
	h := runDispatcher(t, 0, &fakeEngine{})

	h.queue.Close()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run() should return once the queue is closed")
	}
	h.done <- nil
}

func TestDispatcher_MalformedJobDoesNotStopOthers(t *testing.T) {
	h := runDispatcher(t, 1, &fakeEngine{})
	sender := &recordingSender{id: "s1"}

	require.NoError(t, h.queue.Push(Job{Conn: sender, Payload: []byte("garbage")}))
	require.NoError(t, h.queue.Push(Job{Conn: sender, Payload: clip(t, 7)}))

	assert.Eventually(t, func() bool {
		return len(sender.Texts()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"job 7"}, sender.Texts())
}
