package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEnqueue_SameKeyRunsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := NewRegistry()

	var mu sync.Mutex
	var order []int
	var running, maxRunning int32

	var futures []*Future[int]
	for i := 0; i < 10; i++ {
		i := i
		futures = append(futures, Enqueue(r, "alice", func() (int, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxRunning)
				if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			atomic.AddInt32(&running, -1)
			return i * 2, nil
		}))
	}

	for i, f := range futures {
		v, err := f.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i*2, v)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
	assert.Equal(t, 0, r.Len())
}

func TestEnqueue_FailureDoesNotBlockNext(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := NewRegistry()
	boom := errors.New("boom")

	f1 := Enqueue(r, "bob", func() (string, error) { return "", boom })
	f2 := Enqueue(r, "bob", func() (string, error) { panic("kaboom") })
	f3 := Enqueue(r, "bob", func() (string, error) { return "ok", nil })

	_, err := f1.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = f2.Wait(context.Background())
	assert.ErrorIs(t, err, ErrPanic)
	v, err := f3.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestEnqueue_DifferentKeysRunInParallel(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := NewRegistry()

	release := make(chan struct{})
	started := make(chan string, 2)
	block := func(name string) func() (string, error) {
		return func() (string, error) {
			started <- name
			<-release
			return name, nil
		}
	}

	fa := Enqueue(r, "alice", block("alice"))
	fb := Enqueue(r, "bob", block("bob"))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case name := <-started:
			seen[name] = true
		case <-time.After(2 * time.Second):
			t.Fatal("keys did not start concurrently")
		}
	}
	assert.Equal(t, 2, r.Len())
	close(release)

	_, err := fa.Wait(context.Background())
	require.NoError(t, err)
	_, err = fb.Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestEnqueue_NewerTailSurvivesOlderSettle(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := NewRegistry()

	release := make(chan struct{})
	f1 := Enqueue(r, "carol", func() (int, error) { return 1, nil })
	_, err := f1.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())

	f2 := Enqueue(r, "carol", func() (int, error) { <-release; return 2, nil })
	f3 := Enqueue(r, "carol", func() (int, error) { return 3, nil })
	assert.Equal(t, 1, r.Len())

	close(release)
	_, err = f2.Wait(context.Background())
	require.NoError(t, err)
	// f3 is still registered until it settles.
	v, err := f3.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 0, r.Len())
}

func TestFuture_WaitHonorsContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := NewRegistry()
	release := make(chan struct{})
	f := Enqueue(r, "dave", func() (int, error) { <-release; return 1, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-f.Done()
}
