package synth_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pacsim/internal/catalog"
	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
	"github.com/gyaneshwarpardhi/pacsim/internal/synth"
)

var ts = time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)

func fixtures() ([]reference.Cardholder, []reference.Door, []reference.Controller) {
	chs := []reference.Cardholder{
		{ID: "CH-1", Name: "Active One", CardNumber: "1", AccessGroup: "Staff", Status: "active"},
		{ID: "CH-2", Name: "Suspended", CardNumber: "2", AccessGroup: "Staff", Status: "suspended"},
	}
	doors := []reference.Door{
		{ID: "D-1", Name: "Main Entrance", Location: "Lobby", ControllerID: "C-1"},
		{ID: "D-2", Name: "Roof Access", Location: "Roof", ControllerID: "C-missing"},
	}
	ctrls := []reference.Controller{{ID: "C-1", Name: "Lobby Panel"}}
	return chs, doors, ctrls
}

func newSynth(chs []reference.Cardholder, doors []reference.Door, ctrls []reference.Controller) *synth.Synthesizer {
	return synth.New(rand.New(rand.NewPCG(3, 4)), chs, doors, ctrls)
}

func TestBuild_AccessUsesActiveCardholder(t *testing.T) {
	s := newSynth(fixtures())
	for i := 1; i <= 200; i++ {
		ev, err := s.Build(i, ts, catalog.Definition{Weight: 1, Type: "access_granted", Category: event.CategoryAccess})
		require.NoError(t, err)
		a, ok := ev.Detail.(event.Access)
		require.True(t, ok)
		assert.Equal(t, "CH-1", a.CardholderID)
		assert.Equal(t, event.ResultGranted, a.Result)
	}
}

func TestBuild_DeniedCarriesReason(t *testing.T) {
	s := newSynth(fixtures())
	ev, err := s.Build(1, ts, catalog.Definition{Weight: 1, Type: "access_denied", Category: event.CategoryAccess, Reason: "Card expired"})
	require.NoError(t, err)
	a := ev.Detail.(event.Access)
	assert.Equal(t, event.ResultDenied, a.Result)
	assert.Equal(t, "Card expired", a.Details)
	assert.Equal(t, "EVT-000001", ev.ID)
}

func TestBuild_NoActiveCardholders(t *testing.T) {
	_, doors, ctrls := fixtures()
	s := newSynth([]reference.Cardholder{{ID: "x", Status: "expired"}}, doors, ctrls)

	_, err := s.Build(1, ts, catalog.Definition{Weight: 1, Type: "access_granted", Category: event.CategoryAccess})
	require.ErrorIs(t, err, reference.ErrEmptyPool)

	// Non-access categories do not need cardholders.
	_, err = s.Build(2, ts, catalog.Definition{Weight: 1, Type: "door_opened", Category: event.CategoryDoor})
	require.NoError(t, err)
}

func TestBuild_NoDoors(t *testing.T) {
	chs, _, ctrls := fixtures()
	s := newSynth(chs, nil, ctrls)
	_, err := s.Build(1, ts, catalog.Definition{Weight: 1, Type: "door_opened", Category: event.CategoryDoor})
	require.ErrorIs(t, err, reference.ErrEmptyPool)
}

func TestBuild_SystemControllerLookup(t *testing.T) {
	s := newSynth(fixtures())
	var withCtrl, without int
	for i := 1; i <= 200; i++ {
		ev, err := s.Build(i, ts, catalog.Definition{Weight: 1, Type: "controller_offline", Category: event.CategorySystem})
		require.NoError(t, err)
		sys := ev.Detail.(event.System)
		switch ev.DoorID {
		case "D-1":
			assert.Equal(t, "C-1", sys.ControllerID)
			assert.Equal(t, "Lobby Panel", sys.ControllerName)
			withCtrl++
		case "D-2":
			assert.Empty(t, sys.ControllerID)
			without++
		}
	}
	assert.Positive(t, withCtrl)
	assert.Positive(t, without)
}

func TestBuild_Severity(t *testing.T) {
	s := newSynth(fixtures())
	ev, err := s.Build(1, ts, catalog.Definition{Weight: 1, Type: "door_forced_open", Category: event.CategoryAlarm})
	require.NoError(t, err)
	assert.Equal(t, event.SeverityHigh, ev.Detail.(event.Alarm).Severity)

	ev, err = s.Build(2, ts, catalog.Definition{Weight: 1, Type: "sensor_fault", Category: event.CategoryFault})
	require.NoError(t, err)
	assert.Equal(t, event.SeverityMedium, ev.Detail.(event.Fault).Severity)
}
