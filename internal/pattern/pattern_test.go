package pattern_test

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/pattern"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
)

func newRand() *rand.Rand { return rand.New(rand.NewPCG(5, 6)) }

var doors = []reference.Door{
	{ID: "D-1", Name: "Main Entrance", Location: "Lobby"},
	{ID: "D-2", Name: "Server Room A", Location: "Basement"},
	{ID: "D-3", Name: "Loading Dock", Location: "Building B"},
}

func staff(n int, dept string) []reference.Cardholder {
	out := make([]reference.Cardholder, n)
	for i := range out {
		out[i] = reference.Cardholder{
			ID:         fmt.Sprintf("CH-%03d", i+1),
			Name:       fmt.Sprintf("Employee %d", i+1),
			Department: dept,
			Status:     reference.StatusActive,
		}
	}
	return out
}

// 2024-07-01 (Monday) .. 2024-07-14 (Sunday).
func twoWeeks() []time.Time {
	return pattern.Days(
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC),
		time.UTC,
	)
}

func TestDays(t *testing.T) {
	days := twoWeeks()
	require.Len(t, days, 14)
	assert.Equal(t, 1, days[0].Day())
	assert.Equal(t, 14, days[13].Day())

	single := pattern.Days(time.Date(2024, 7, 3, 15, 0, 0, 0, time.UTC), time.Date(2024, 7, 3, 16, 0, 0, 0, time.UTC), time.UTC)
	require.Len(t, single, 1)
	assert.Zero(t, single[0].Hour())
}

func TestCommute_WeekdaysOnly(t *testing.T) {
	evs, err := pattern.Commute(newRand(), pattern.DefaultCommute(), staff(5, "Engineering"), doors, twoWeeks())
	require.NoError(t, err)
	require.NotEmpty(t, evs)

	for _, ev := range evs {
		wd := ev.Timestamp.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
		assert.Equal(t, "D-1", ev.DoorID)
		assert.Equal(t, "access_granted", ev.EventType)
		assert.True(t, strings.HasPrefix(ev.ID, "EVT-C"), ev.ID)
		a, ok := ev.Detail.(event.Access)
		require.True(t, ok)
		assert.Equal(t, event.ResultGranted, a.Result)
	}
}

func TestCommute_TimeWindows(t *testing.T) {
	evs, err := pattern.Commute(newRand(), pattern.DefaultCommute(), staff(10, "IT"), doors, twoWeeks())
	require.NoError(t, err)

	for _, ev := range evs {
		minutes := ev.Timestamp.Hour()*60 + ev.Timestamp.Minute()
		switch ev.Detail.(event.Access).Details {
		case "Morning arrival":
			assert.GreaterOrEqual(t, minutes, 7*60+30)
			assert.LessOrEqual(t, minutes, 8*60+30)
		case "Evening departure":
			assert.GreaterOrEqual(t, minutes, 16*60)
			assert.LessOrEqual(t, minutes, 18*60)
		default:
			t.Fatalf("unexpected details %q", ev.Detail.(event.Access).Details)
		}
	}
}

func TestCommute_Participation(t *testing.T) {
	// 10 staff × 10 weekdays × 2 events at 90% participation ≈ 180.
	evs, err := pattern.Commute(newRand(), pattern.DefaultCommute(), staff(10, "Sales"), doors, twoWeeks())
	require.NoError(t, err)
	assert.InDelta(t, 180, len(evs), 30)
	assert.Zero(t, len(evs)%2)
}

func TestCommute_SelectsEligibleStaffOnly(t *testing.T) {
	chs := append(staff(30, "Finance"), staff(5, "Contractors")...)
	chs[0].Status = "suspended"

	evs, err := pattern.Commute(newRand(), pattern.DefaultCommute(), chs, doors, twoWeeks())
	require.NoError(t, err)

	ids := make(map[string]struct{})
	for _, ev := range evs {
		ids[ev.Detail.(event.Access).CardholderID] = struct{}{}
	}
	assert.LessOrEqual(t, len(ids), 20)
	assert.NotContains(t, ids, chs[0].ID)
}

func TestCommute_NoMainEntrance(t *testing.T) {
	_, err := pattern.Commute(newRand(), pattern.DefaultCommute(), staff(3, "IT"), doors[1:], twoWeeks())
	require.ErrorIs(t, err, reference.ErrEmptyPool)
}

func TestCommute_NoEligibleStaff(t *testing.T) {
	evs, err := pattern.Commute(newRand(), pattern.DefaultCommute(), staff(3, "Contractors"), doors, twoWeeks())
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestFaults_Weekly(t *testing.T) {
	days := twoWeeks()
	evs := pattern.Faults(newRand(), pattern.DefaultFault(), doors, days)
	require.Len(t, evs, 2)

	for i, ev := range evs {
		assert.Equal(t, "sensor_fault", ev.EventType)
		assert.Equal(t, "D-2", ev.DoorID)
		assert.Equal(t, days[i*7].Day(), ev.Timestamp.Day())
		assert.Equal(t, fmt.Sprintf("EVT-F%06d", i+1), ev.ID)
		assert.Equal(t, event.CategoryFault, ev.Category())
	}
}

func TestFaults_NoServerRoom(t *testing.T) {
	evs := pattern.Faults(newRand(), pattern.DefaultFault(), []reference.Door{doors[0], doors[2]}, twoWeeks())
	assert.Empty(t, evs)
}
