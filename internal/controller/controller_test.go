package controller

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/mesh-intelligence/journal/internal/logger"
	"github.com/mesh-intelligence/journal/pkg/journal"
	"github.com/mesh-intelligence/journal/pkg/types"
)

func setupController(t *testing.T) *Controller {
	t.Helper()
	noDelay := int64(0)
	m, err := journal.Open(types.Config{DataDir: t.TempDir(), WriteDelayMs: &noDelay}, nil,
		journal.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	c := New(m, logger.Test(t))
	t.Cleanup(func() { c.Close() })
	return c
}

// result captures one consumer outcome.
type result[T any] struct {
	value T
	err   error
}

func await[T any](t *testing.T) (Consumer[T], func() result[T]) {
	t.Helper()
	ch := make(chan result[T], 1)
	consumer := ConsumerFuncs[T]{
		OnSuccess: func(v T) { ch <- result[T]{value: v} },
		OnFail:    func(err error) { ch <- result[T]{err: err} },
	}
	return consumer, func() result[T] {
		select {
		case r := <-ch:
			return r
		case <-time.After(5 * time.Second):
			t.Fatal("consumer was not called")
			return result[T]{}
		}
	}
}

func TestController_CreateGetUpdate(t *testing.T) {
	c := setupController(t)

	created, wait := await[*types.Experiment](t)
	c.CreateExperiment("Pendulum", created)
	r := wait()
	require.NoError(t, r.err)
	exp := r.value
	id := exp.ID()

	got, waitGet := await[*types.Experiment](t)
	c.GetExperimentByID(id, got)
	rg := waitGet()
	require.NoError(t, rg.err)
	assert.Same(t, exp, rg.value)

	rg.value.SetTitle("Pendulum, long")
	updated, waitUpdate := await[Success](t)
	c.UpdateExperiment(id, updated)
	require.NoError(t, waitUpdate().err)

	listed, waitList := await[[]types.ExperimentOverview](t)
	c.ListOverviews(types.OverviewFilter{}, listed)
	rl := waitList()
	require.NoError(t, rl.err)
	require.Len(t, rl.value, 1)
	assert.Equal(t, "Pendulum, long", rl.value[0].Title)
}

func TestController_GetMissingFails(t *testing.T) {
	c := setupController(t)

	got, wait := await[*types.Experiment](t)
	c.GetExperimentByID("missing", got)
	assert.ErrorIs(t, wait().err, types.ErrNotFound)
}

func TestController_SetCoverImage(t *testing.T) {
	c := setupController(t)

	created, wait := await[*types.Experiment](t)
	c.CreateExperiment("Photo", created)
	r := wait()
	require.NoError(t, r.err)
	id := r.value.ID()

	cover, waitCover := await[string](t)
	c.SetCoverImage(id, "cover.png", strings.NewReader("png"), cover)
	rc := waitCover()
	require.NoError(t, rc.err)
	assert.Equal(t, id+"/assets/cover.png", rc.value)
}

func TestController_DeleteExperiment(t *testing.T) {
	c := setupController(t)

	created, wait := await[*types.Experiment](t)
	c.CreateExperiment("Gone", created)
	r := wait()
	require.NoError(t, r.err)

	deleted, waitDelete := await[Success](t)
	c.DeleteExperiment(r.value.ID(), deleted)
	require.NoError(t, waitDelete().err)

	listed, waitList := await[[]types.ExperimentOverview](t)
	c.ListOverviews(types.OverviewFilter{IncludeArchived: true}, listed)
	assert.Empty(t, waitList().value)
}

func TestController_ConcurrentCallers(t *testing.T) {
	c := setupController(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := make(chan struct{})
			c.CreateExperiment("concurrent", ConsumerFuncs[*types.Experiment]{
				OnSuccess: func(*types.Experiment) { close(done) },
				OnFail: func(err error) {
					errs <- err
					close(done)
				},
			})
			<-done
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("create failed: %v", err)
	}

	listed, waitList := await[[]types.ExperimentOverview](t)
	c.ListOverviews(types.OverviewFilter{}, listed)
	assert.Len(t, waitList().value, n)
}

func TestController_ConsumerMayQueueCalls(t *testing.T) {
	c := setupController(t)

	// More nested calls than any fixed queue would hold.
	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	listed := ConsumerFuncs[[]types.ExperimentOverview]{
		OnSuccess: func([]types.ExperimentOverview) { wg.Done() },
		OnFail: func(err error) {
			t.Errorf("list failed: %v", err)
			wg.Done()
		},
	}
	created, wait := await[*types.Experiment](t)
	c.CreateExperiment("Nested", ConsumerFuncs[*types.Experiment]{
		OnSuccess: func(exp *types.Experiment) {
			for i := 0; i < n; i++ {
				c.ListOverviews(types.OverviewFilter{}, listed)
			}
			created.Success(exp)
		},
		OnFail: created.Fail,
	})
	require.NoError(t, wait().err)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nested calls did not complete")
	}
	require.NoError(t, c.Close())
}

func TestController_CloseDrainsAndRejects(t *testing.T) {
	c := setupController(t)

	created, wait := await[*types.Experiment](t)
	c.CreateExperiment("Queued", created)
	require.NoError(t, c.Close())
	require.NoError(t, wait().err)

	late, waitLate := await[*types.Experiment](t)
	c.CreateExperiment("Late", late)
	assert.ErrorIs(t, waitLate().err, ErrClosed)

	// Idempotent.
	assert.NoError(t, c.Close())
}

func TestLoggingConsumer(t *testing.T) {
	lggr, logs := logger.TestObserved(t, zapcore.ErrorLevel)

	var gotValue string
	var gotErr error
	consumer := LoggingConsumer[string]{
		Logger:    lggr,
		Operation: "load experiment",
		OnSuccess: func(v string) { gotValue = v },
		OnFail:    func(err error) { gotErr = err },
	}

	consumer.Success("ok")
	assert.Equal(t, "ok", gotValue)
	assert.Zero(t, logs.Len())

	boom := errors.New("boom")
	consumer.Fail(boom)
	assert.Equal(t, boom, gotErr)
	require.Equal(t, 1, logs.FilterMessage("failed to load experiment").Len())
}
