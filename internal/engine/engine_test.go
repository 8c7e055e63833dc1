package engine_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pacsim/internal/budget"
	"github.com/gyaneshwarpardhi/pacsim/internal/config"
	"github.com/gyaneshwarpardhi/pacsim/internal/engine"
	"github.com/gyaneshwarpardhi/pacsim/internal/generator"
	"github.com/gyaneshwarpardhi/pacsim/internal/publish"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
	"github.com/gyaneshwarpardhi/pacsim/internal/store"
	"github.com/gyaneshwarpardhi/pacsim/internal/store/memory"
)

type fixture struct {
	eng   *engine.Engine
	store *memory.Store
}

func newFixture(t *testing.T, conf config.EngineConf, limits budget.Limits, pub *publish.Publisher) *fixture {
	t.Helper()
	ref, err := reference.Default()
	require.NoError(t, err)

	st := memory.New()
	gen := generator.New(generator.DefaultConfig(), budget.NewValidator(limits, st),
		generator.WithRand(func() *rand.Rand { return rand.New(rand.NewPCG(8, 9)) }))

	ctx, cancel := context.WithCancel(context.Background())
	eng := engine.New(ctx, gen, ref, st, pub, conf)
	t.Cleanup(func() {
		cancel()
		eng.Shutdown()
	})
	return &fixture{eng: eng, store: st}
}

func defaultConf() config.EngineConf {
	return config.EngineConf{Workers: 1, QueueDepth: 4, TimeoutMs: 10000, JobHistory: 10}
}

var week = engine.Params{StartDate: "2024-07-01", EndDate: "2024-07-07", TargetCount: 500}

func TestGenerate_Stores(t *testing.T) {
	f := newFixture(t, defaultConf(), budget.DefaultLimits(), nil)
	ctx := context.Background()

	sum, err := f.eng.Generate(ctx, week)
	require.NoError(t, err)
	assert.Equal(t, 500, sum.EventCount)
	assert.Equal(t, "2024-07-01", sum.StartDate)
	assert.Equal(t, "2024-07-07", sum.EndDate)
	assert.Positive(t, sum.StoredBytes)

	ds, err := f.eng.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, sum.DatasetID, ds.ID)
	require.Len(t, ds.Events, 500)
	assert.Equal(t, "EVT-000001", ds.Events[0].ID)

	// Regeneration replaces the dataset.
	p := week
	p.TargetCount = 300
	sum2, err := f.eng.Generate(ctx, p)
	require.NoError(t, err)
	ds, err = f.eng.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, sum2.DatasetID, ds.ID)
	assert.Len(t, ds.Events, 300)
}

func TestGenerate_BadParams(t *testing.T) {
	f := newFixture(t, defaultConf(), budget.DefaultLimits(), nil)
	cases := []engine.Params{
		{StartDate: "07/01/2024", EndDate: "2024-07-07", TargetCount: 10},
		{StartDate: "2024-07-08", EndDate: "2024-07-07", TargetCount: 10},
		{StartDate: "2024-07-01", EndDate: "2024-07-07", TargetCount: -1},
	}
	for _, p := range cases {
		_, err := f.eng.Generate(context.Background(), p)
		assert.ErrorIs(t, err, generator.ErrInvalidRequest, "%+v", p)
	}
}

func TestGenerate_QuotaCountsStoredData(t *testing.T) {
	size := budget.SampleEventSize()
	// Room for roughly 700 events in total.
	limits := budget.Limits{CapacityBytes: 700 * size, MaxUsageRatio: 1, MaxCount: 100_000, MinCount: 1}
	f := newFixture(t, defaultConf(), limits, nil)
	ctx := context.Background()

	_, err := f.eng.Generate(ctx, week)
	require.NoError(t, err)

	// The stored 500 leave no room for another 500.
	_, err = f.eng.Generate(ctx, week)
	require.ErrorIs(t, err, budget.ErrQuotaExceeded)

	require.NoError(t, f.eng.Clear(ctx))
	_, err = f.eng.Generate(ctx, week)
	require.NoError(t, err)
}

func TestSubmit_RunsJob(t *testing.T) {
	f := newFixture(t, defaultConf(), budget.DefaultLimits(), nil)

	job, err := f.eng.Submit(week)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	require.Eventually(t, func() bool {
		j, ok := f.eng.Job(job.ID)
		return ok && j.Status == engine.JobSucceeded
	}, 10*time.Second, 10*time.Millisecond)

	j, _ := f.eng.Job(job.ID)
	require.NotNil(t, j.Summary)
	assert.Equal(t, 500, j.Summary.EventCount)
	assert.NotNil(t, j.FinishedAt)
}

func TestSubmit_FailedJob(t *testing.T) {
	limits := budget.DefaultLimits()
	limits.MaxCount = 10
	f := newFixture(t, defaultConf(), limits, nil)

	job, err := f.eng.Submit(week)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		j, _ := f.eng.Job(job.ID)
		return j.Status == engine.JobFailed
	}, 10*time.Second, 10*time.Millisecond)

	j, _ := f.eng.Job(job.ID)
	assert.Contains(t, j.Error, "quota")
}

func TestSubmit_QueueFull(t *testing.T) {
	conf := config.EngineConf{Workers: 0, QueueDepth: 1, TimeoutMs: 1000, JobHistory: 10}
	f := newFixture(t, conf, budget.DefaultLimits(), nil)

	_, err := f.eng.Submit(week)
	require.NoError(t, err)
	_, err = f.eng.Submit(week)
	require.ErrorIs(t, err, engine.ErrQueueFull)
	assert.Equal(t, 1.0, f.eng.QueueUtilization())
}

func TestSubmit_RejectsBadParams(t *testing.T) {
	f := newFixture(t, defaultConf(), budget.DefaultLimits(), nil)
	_, err := f.eng.Submit(engine.Params{StartDate: "nope", EndDate: "2024-07-01"})
	require.ErrorIs(t, err, generator.ErrInvalidRequest)
}

func TestPublish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	f := newFixture(t, defaultConf(), budget.DefaultLimits(), publish.New(producer, "pacs-events"))
	ctx := context.Background()

	_, _, err := f.eng.Publish(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	p := week
	p.TargetCount = 200
	sum, err := f.eng.Generate(ctx, p)
	require.NoError(t, err)
	for i := 0; i < sum.EventCount; i++ {
		producer.ExpectSendMessageAndSucceed()
	}

	id, n, err := f.eng.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, sum.DatasetID, id)
	assert.Equal(t, sum.EventCount, n)
}

func TestPublish_Disabled(t *testing.T) {
	f := newFixture(t, defaultConf(), budget.DefaultLimits(), nil)
	_, _, err := f.eng.Publish(context.Background())
	require.ErrorIs(t, err, engine.ErrPublishDisabled)
}

func TestBudget(t *testing.T) {
	f := newFixture(t, defaultConf(), budget.DefaultLimits(), nil)
	ctx := context.Background()

	status, err := f.eng.Budget(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.UsedBytes)
	assert.Equal(t, budget.DefaultLimits().MaxCount, status.RecommendedMax)
	assert.Equal(t, budget.SampleEventSize(), status.EventSizeBytes)

	res, err := f.eng.CheckBudget(ctx, budget.DefaultLimits().MaxCount+1)
	require.NoError(t, err)
	assert.False(t, res.Valid)
}
