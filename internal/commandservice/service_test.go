package commandservice

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

	"github.com/starford/canvasai/internal/apperr"
	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/pipeline"
)

type stubRouter struct {
	calls   atomic.Int32
	delay   time.Duration
	mu      sync.Mutex
	order   []string
	running map[string]int
	overlap bool
}

func (r *stubRouter) Route(_ context.Context, cmd pipeline.Command) pipeline.Result {
	r.calls.Add(1)
	r.mu.Lock()
	if r.running == nil {
		r.running = map[string]int{}
	}
	r.running[cmd.UserID]++
	if r.running[cmd.UserID] > 1 {
		r.overlap = true
	}
	r.mu.Unlock()

	time.Sleep(r.delay)

	r.mu.Lock()
	r.order = append(r.order, cmd.Text)
	r.running[cmd.UserID]--
	r.mu.Unlock()

	if cmd.Text == "fail" {
		return pipeline.Result{Success: false, Message: "nope"}
	}
	return pipeline.Result{
		Success: true,
		Objects: []canvas.Object{{ID: cmd.Text, Shape: canvas.StickyNote{}}},
		Message: "did " + cmd.Text,
	}
}

type events struct {
	mu   sync.Mutex
	got  []MutationEvent
	keys []string
}

func (e *events) PublishBoardEvent(board string, data any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = append(e.keys, board)
	e.got = append(e.got, data.(MutationEvent))
}

func cmd(user, text string) pipeline.Command {
	return pipeline.Command{Text: text, BoardID: "board", UserID: user}
}

func TestSubmit_RequiresBoardAndUser(t *testing.T) {
	s, err := New(&stubRouter{})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), pipeline.Command{Text: "x", BoardID: "b"}, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = s.Submit(context.Background(), pipeline.Command{Text: "x", UserID: "u"}, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSubmit_SerializesPerUser(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := &stubRouter{delay: 5 * time.Millisecond}
	s, err := New(r)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, text := range []string{"a", "fail", "b"} {
		wg.Add(1)
		text := text
		go func() {
			defer wg.Done()
			_, _ = s.Submit(context.Background(), cmd("alice", text), "")
		}()
		// Give each submission time to enqueue so order is deterministic.
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	assert.False(t, r.overlap, "two commands of one user ran at once")
	assert.Equal(t, []string{"a", "fail", "b"}, r.order)
	assert.Equal(t, 0, s.Pending())
}

func TestSubmit_IdempotencyKey(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := &stubRouter{}
	s, err := New(r, WithCacheSize(8))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := s.Submit(ctx, cmd("u", "a"), "key-1")
	require.NoError(t, err)
	again, err := s.Submit(ctx, cmd("u", "a"), "key-1")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, int32(1), r.calls.Load())

	_, err = s.Submit(ctx, cmd("other-user", "a"), "key-1")
	require.NoError(t, err)
	_, err = s.Submit(ctx, cmd("u", "a"), "")
	require.NoError(t, err)
	assert.Equal(t, int32(3), r.calls.Load())
}

func TestSubmit_PublishesSuccessfulMutations(t *testing.T) {
	defer goleak.VerifyNone(t)
	ev := &events{}
	s, err := New(&stubRouter{}, WithPublisher(ev))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Submit(ctx, cmd("u", "a"), "")
	require.NoError(t, err)
	res, err := s.Submit(ctx, cmd("u", "fail"), "")
	require.NoError(t, err)
	assert.False(t, res.Success)

	require.Len(t, ev.got, 1)
	assert.Equal(t, []string{"board"}, ev.keys)
	assert.Equal(t, "u", ev.got[0].UserID)
	assert.NotNil(t, ev.got[0].DeletedIDs)
	assert.Equal(t, "did a", ev.got[0].Message)
}

func TestSubmit_CallerContextCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := &stubRouter{delay: 50 * time.Millisecond}
	s, err := New(r)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err = s.Submit(ctx, cmd("u", "slow"), "")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// The queued command still completes.
	res, err := s.Submit(context.Background(), cmd("u", "next"), "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"slow", "next"}, r.order)
}
