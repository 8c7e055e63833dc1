package budget_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pacsim/internal/budget"
)

func fixedUsage(n int64) budget.UsageProbe {
	return budget.ProbeFunc(func(context.Context) (int64, error) { return n, nil })
}

func TestValidate_ZeroIsValid(t *testing.T) {
	v := budget.NewValidator(budget.DefaultLimits(), fixedUsage(0))
	res, err := v.Validate(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.NoError(t, res.Err())
}

func TestValidate_Ceiling(t *testing.T) {
	limits := budget.DefaultLimits()
	v := budget.NewValidator(limits, fixedUsage(0))

	res, err := v.Validate(context.Background(), limits.MaxCount)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = v.Validate(context.Background(), limits.MaxCount+1)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "exceeds maximum")

	var qe *budget.QuotaError
	require.ErrorAs(t, res.Err(), &qe)
	assert.Equal(t, limits.MaxCount+1, qe.Requested)
	assert.ErrorIs(t, res.Err(), budget.ErrQuotaExceeded)
}

func TestValidate_Negative(t *testing.T) {
	v := budget.NewValidator(budget.DefaultLimits(), nil)
	res, err := v.Validate(context.Background(), -1)
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestValidate_Headroom(t *testing.T) {
	limits := budget.Limits{CapacityBytes: 1 << 20, MaxUsageRatio: 0.8, MaxCount: 1_000_000, MinCount: 10}
	size := budget.SampleEventSize()
	limit := int64(float64(limits.CapacityBytes) * limits.MaxUsageRatio)

	cases := []struct {
		name  string
		used  int64
		count int
		valid bool
	}{
		{"empty store fits", 0, int(limit / size), true},
		{"empty store one over", 0, int(limit/size) + 1, false},
		{"usage counts", limit - size, 1, true},
		{"usage leaves no room", limit - size + 1, 1, false},
		{"already over", limit + 1, 1, false},
		{"zero fits when over", limit + 1, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := budget.NewValidator(limits, fixedUsage(tc.used))
			res, err := v.Validate(context.Background(), tc.count)
			require.NoError(t, err)
			assert.Equal(t, tc.valid, res.Valid, res.Message)
			assert.Equal(t, tc.used+int64(tc.count)*size, res.ProjectedBytes)
		})
	}
}

func TestValidate_ProbeError(t *testing.T) {
	boom := errors.New("boom")
	v := budget.NewValidator(budget.DefaultLimits(), budget.ProbeFunc(func(context.Context) (int64, error) { return 0, boom }))
	_, err := v.Validate(context.Background(), 10)
	require.ErrorIs(t, err, boom)
}

func TestRecommendedMax(t *testing.T) {
	limits := budget.Limits{CapacityBytes: 1 << 20, MaxUsageRatio: 0.8, MaxCount: 2_000, MinCount: 100}
	size := budget.SampleEventSize()
	limit := int64(float64(limits.CapacityBytes) * limits.MaxUsageRatio)

	// Headroom for exactly 500 events.
	v := budget.NewValidator(limits, fixedUsage(limit-500*size))
	n, err := v.RecommendedMax(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500, n)

	// Full store clamps to the floor.
	v = budget.NewValidator(limits, fixedUsage(limit*2))
	n, err = v.RecommendedMax(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	// Empty store clamps to the ceiling.
	v = budget.NewValidator(limits, fixedUsage(0))
	n, err = v.RecommendedMax(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2_000, n)
}

func TestSampleEventSize(t *testing.T) {
	size := budget.SampleEventSize()
	assert.Greater(t, size, int64(200))
	assert.Less(t, size, int64(1000))
}
