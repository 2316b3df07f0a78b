package game

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/eoc-response-sim/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func twoOptionDecision(id string) types.Decision {
	return types.Decision{
		ID:          id,
		Description: "Storm surge warning",
		Options: []types.DecisionOption{
			{
				Text:               "Evacuate",
				ResourceCost:       types.ResourceAmounts{types.ResourcePersonnel: 20, types.ResourceVehicles: 5},
				EffectivenessScore: 25,
			},
			{
				Text:               "Wait",
				ResourceCost:       types.ResourceAmounts{},
				EffectivenessScore: -10,
			},
		},
	}
}

func TestNewSessionStoreInitialState(t *testing.T) {
	store := NewSessionStore()
	st := store.Snapshot()

	assert.Equal(t, types.PhaseMenu, st.Phase)
	assert.Nil(t, st.CurrentZone)
	assert.Nil(t, st.Scenario)
	assert.Equal(t, BaselineResources(), st.Resources)
	assert.Equal(t, 0, st.Score)
	assert.Empty(t, st.DecisionsWaiting)
	assert.Empty(t, st.CompletedDecisions)
	assert.Equal(t, 600.0, st.TimeRemaining)
}

func TestInitializeScenarioResetsEverything(t *testing.T) {
	for _, disaster := range types.DisasterTypes() {
		t.Run(string(disaster), func(t *testing.T) {
			// Setup: dirty every field first
			store := NewSessionStore()
			store.InitializeScenario(types.DisasterFire)
			store.AddDecision(twoOptionDecision("d1"))
			store.AddDecision(twoOptionDecision("d2"))
			store.MakeDecision("d1", 0)
			store.UpdateScore(99)
			store.UpdateTime(120)
			store.AllocateResources(types.ResourceAmounts{types.ResourceBudget: 5})

			store.InitializeScenario(disaster)
			st := store.Snapshot()

			assert.Equal(t, BaselineResources(), st.Resources)
			assert.Equal(t, 0, st.Score)
			assert.Empty(t, st.DecisionsWaiting)
			assert.Empty(t, st.CompletedDecisions)
			assert.Equal(t, 600.0, st.TimeRemaining)
			assert.Equal(t, types.PhaseActiveScenario, st.Phase)
			require.NotNil(t, st.Scenario)
			assert.Equal(t, disaster, st.Scenario.Type)
			assert.False(t, st.Tutorial)
		})
	}
}

func TestInitializeScenarioTemplates(t *testing.T) {
	store := NewSessionStore()

	store.InitializeScenario(types.DisasterEarthquake)
	st := store.Snapshot()
	require.NotNil(t, st.Scenario)
	assert.Equal(t, "7.2 Magnitude Earthquake", st.Scenario.Name)
	assert.Equal(t, 5, st.Scenario.Severity)
	assert.Equal(t, 100000, st.Scenario.AffectedPopulation)
	assert.Equal(t, 20000, st.Scenario.Evacuees)
	assert.Equal(t, 50, st.Scenario.Casualties)
	assert.Equal(t, int64(200000000), st.Scenario.DamageEstimate)
	assert.Equal(t, 0.0, st.Scenario.TimeElapsed)
}

func TestInitializeScenarioUnknownTypeIsNoop(t *testing.T) {
	store := NewSessionStore()
	calls := 0
	store.Subscribe(func(current, previous types.GameState) { calls++ })

	store.InitializeScenario(types.DisasterType("meteor"))

	assert.Equal(t, 0, calls)
	assert.Equal(t, types.PhaseMenu, store.Snapshot().Phase)
}

func TestScenarioTemplateIsFreshCopy(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterFlood)
	casualties := 400
	store.UpdateScenario(types.ScenarioUpdate{Casualties: &casualties})

	tmpl, ok := ScenarioTemplate(types.DisasterFlood)
	require.True(t, ok)
	assert.Equal(t, 5, tmpl.Casualties)

	store.InitializeScenario(types.DisasterFlood)
	assert.Equal(t, 5, store.Snapshot().Scenario.Casualties)
}

func TestStartTutorial(t *testing.T) {
	store := NewSessionStore()
	var phases []types.GamePhase
	store.Subscribe(func(current, previous types.GameState) {
		phases = append(phases, current.Phase)
	})

	store.StartTutorial()

	st := store.Snapshot()
	assert.Equal(t, []types.GamePhase{types.PhaseTutorial, types.PhaseActiveScenario}, phases)
	assert.Equal(t, types.PhaseActiveScenario, st.Phase)
	require.NotNil(t, st.Scenario)
	assert.Equal(t, types.DisasterTyphoon, st.Scenario.Type)
	assert.True(t, st.Tutorial)
}

func TestSetPhaseAndZone(t *testing.T) {
	store := NewSessionStore()

	store.SetPhase(types.PhaseEnded)
	assert.Equal(t, types.PhaseEnded, store.Snapshot().Phase)

	zone := "command-center"
	store.SetCurrentZone(&zone)
	zone = "mutated-after-call"
	require.NotNil(t, store.Snapshot().CurrentZone)
	assert.Equal(t, "command-center", *store.Snapshot().CurrentZone)

	store.SetCurrentZone(nil)
	assert.Nil(t, store.Snapshot().CurrentZone)
}

func TestUpdateScenario(t *testing.T) {
	// Test case 1: no scenario is a no-op
	store := NewSessionStore()
	calls := 0
	store.Subscribe(func(current, previous types.GameState) { calls++ })
	evacuees := 10
	store.UpdateScenario(types.ScenarioUpdate{Evacuees: &evacuees})
	assert.Equal(t, 0, calls)
	assert.Nil(t, store.Snapshot().Scenario)

	// Test case 2: partial merge keeps other fields
	store.InitializeScenario(types.DisasterTyphoon)
	store.UpdateScenario(types.ScenarioUpdate{Evacuees: &evacuees})
	st := store.Snapshot()
	assert.Equal(t, 10, st.Scenario.Evacuees)
	assert.Equal(t, "Bagyong Maria", st.Scenario.Name)
	assert.Equal(t, 50000, st.Scenario.AffectedPopulation)
}

func TestMakeDecisionAppliesAllEffects(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterTyphoon)
	store.AddDecision(twoOptionDecision("surge"))

	store.MakeDecision("surge", 0)
	st := store.Snapshot()

	assert.Equal(t, 80, st.Resources.Personnel)
	assert.Equal(t, 10, st.Resources.Vehicles)
	assert.Equal(t, 50, st.Resources.MedicalSupplies)
	assert.Equal(t, 25, st.Score)
	assert.Empty(t, st.DecisionsWaiting)
	assert.Equal(t, []string{"surge"}, st.CompletedDecisions)
}

func TestMakeDecisionIsAtomic(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterTyphoon)
	store.AddDecision(twoOptionDecision("surge"))

	var seen []types.GameState
	store.Subscribe(func(current, previous types.GameState) {
		seen = append(seen, current)
	})
	store.MakeDecision("surge", 0)

	require.Len(t, seen, 1)
	assert.Equal(t, 25, seen[0].Score)
	assert.Equal(t, 80, seen[0].Resources.Personnel)
	assert.Empty(t, seen[0].DecisionsWaiting)
	assert.Equal(t, []string{"surge"}, seen[0].CompletedDecisions)
}

func TestMakeDecisionExactlyOnce(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterTyphoon)
	store.AddDecision(twoOptionDecision("surge"))

	store.MakeDecision("surge", 0)
	before := store.Snapshot()

	calls := 0
	store.Subscribe(func(current, previous types.GameState) { calls++ })
	store.MakeDecision("surge", 0)

	assert.Equal(t, before, store.Snapshot())
	assert.Equal(t, 0, calls)
	assert.Equal(t, []string{"surge"}, store.Snapshot().CompletedDecisions)
}

func TestMakeDecisionOutOfRangeOptionIsNoop(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterTyphoon)
	store.AddDecision(twoOptionDecision("surge"))
	before := store.Snapshot()

	store.MakeDecision("surge", 5)
	store.MakeDecision("surge", -1)
	store.MakeDecision("unknown", 0)

	after := store.Snapshot()
	assert.Equal(t, before.Resources, after.Resources)
	assert.Equal(t, before.Score, after.Score)
	assert.Equal(t, before.DecisionsWaiting, after.DecisionsWaiting)
	assert.Equal(t, before.CompletedDecisions, after.CompletedDecisions)
}

func TestMakeDecisionResourceFloor(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterEarthquake)

	expensive := types.Decision{
		ID: "collapse",
		Options: []types.DecisionOption{
			{
				ResourceCost: types.ResourceAmounts{
					types.ResourcePersonnel:       70,
					types.ResourceMedicalSupplies: 40,
					types.ResourceFoodPacks:       150,
					types.ResourceRescueEquipment: 25,
					types.ResourceVehicles:        12,
					types.ResourceBudget:          900000,
				},
				EffectivenessScore: 5,
			},
		},
	}

	var minimum int
	store.Subscribe(func(current, previous types.GameState) {
		for _, kind := range types.ResourceKinds() {
			v, _ := current.Resources.Get(kind)
			minimum = min(minimum, v)
		}
	})

	for i := 0; i < 4; i++ {
		d := expensive
		d.ID = expensive.ID + string(rune('a'+i))
		store.AddDecision(d)
		store.MakeDecision(d.ID, 0)
	}

	st := store.Snapshot()
	assert.Equal(t, 0, minimum)
	assert.Equal(t, types.Resources{}, st.Resources)
	assert.Equal(t, 20, st.Score)
	assert.Len(t, st.CompletedDecisions, 4)
}

func TestMakeDecisionIgnoresUnknownAndZeroCosts(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterFire)
	store.AddDecision(types.Decision{
		ID: "odd",
		Options: []types.DecisionOption{
			{ResourceCost: types.ResourceAmounts{"helicopters": 3, types.ResourceVehicles: 0}, EffectivenessScore: 1},
		},
	})

	store.MakeDecision("odd", 0)
	st := store.Snapshot()

	assert.Equal(t, BaselineResources(), st.Resources)
	assert.Equal(t, 1, st.Score)
}

func TestScoreAccumulation(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterFlood)

	first := twoOptionDecision("first")
	second := twoOptionDecision("second")
	store.AddDecision(first)
	store.AddDecision(second)

	store.MakeDecision("first", 1)
	assert.Equal(t, -10, store.Snapshot().Score)
	store.MakeDecision("second", 0)
	assert.Equal(t, 15, store.Snapshot().Score)
	assert.Equal(t, []string{"first", "second"}, store.Snapshot().CompletedDecisions)

	store.UpdateScore(-30)
	assert.Equal(t, -15, store.Snapshot().Score)
}

func TestDuplicateDecisionIDs(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterFlood)
	store.AddDecision(twoOptionDecision("dup"))
	store.AddDecision(twoOptionDecision("dup"))
	store.AddDecision(twoOptionDecision("other"))
	assert.Len(t, store.Snapshot().DecisionsWaiting, 3)

	// every copy leaves the waiting list, the id is completed once
	store.MakeDecision("dup", 0)
	st := store.Snapshot()
	require.Len(t, st.DecisionsWaiting, 1)
	assert.Equal(t, "other", st.DecisionsWaiting[0].ID)
	assert.Equal(t, []string{"dup"}, st.CompletedDecisions)
	assert.Equal(t, 80, st.Resources.Personnel)
}

func TestAddDecisionCopiesInput(t *testing.T) {
	store := NewSessionStore()
	decision := twoOptionDecision("surge")
	store.AddDecision(decision)

	decision.Options[0].ResourceCost[types.ResourcePersonnel] = 1000
	st := store.Snapshot()
	assert.Equal(t, 20, st.DecisionsWaiting[0].Options[0].ResourceCost[types.ResourcePersonnel])
}

func TestAllocateResourcesIsUnclamped(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterTyphoon)

	store.AllocateResources(types.ResourceAmounts{
		types.ResourceVehicles: -4,
		types.ResourceBudget:   42,
		"unknown":              7,
	})
	st := store.Snapshot()

	assert.Equal(t, -4, st.Resources.Vehicles, "direct allocation overwrites without clamping")
	assert.Equal(t, 42, st.Resources.Budget)
	assert.Equal(t, 100, st.Resources.Personnel)

	// decision resolution still clamps from a negative starting point
	store.AddDecision(types.Decision{
		ID:      "tow",
		Options: []types.DecisionOption{{ResourceCost: types.ResourceAmounts{types.ResourceVehicles: 1}}},
	})
	store.MakeDecision("tow", 0)
	assert.Equal(t, 0, store.Snapshot().Resources.Vehicles)
}

func TestUpdateTimeZeroCrossing(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterTyphoon)
	store.UpdateTime(595)
	require.Equal(t, 5.0, store.Snapshot().TimeRemaining)

	var seen, before []types.GameState
	store.Subscribe(func(current, previous types.GameState) {
		seen = append(seen, current)
		before = append(before, previous)
	})
	store.UpdateTime(10)

	// one notification carries both effects
	require.Len(t, seen, 1)
	assert.Equal(t, 0.0, seen[0].TimeRemaining)
	assert.Equal(t, types.PhaseEnded, seen[0].Phase)
	assert.Equal(t, 5.0, before[0].TimeRemaining)
	assert.Equal(t, types.PhaseActiveScenario, before[0].Phase)
}

func TestUpdateTimeOutsideActiveScenario(t *testing.T) {
	store := NewSessionStore()

	store.UpdateTime(1000)
	st := store.Snapshot()
	assert.Equal(t, 0.0, st.TimeRemaining)
	assert.Equal(t, types.PhaseMenu, st.Phase, "only an active scenario ends on zero")
}

func TestUpdateTimeIgnoresNegativeDelta(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterTyphoon)

	store.UpdateTime(-50)
	assert.Equal(t, 600.0, store.Snapshot().TimeRemaining)

	store.UpdateTime(0.5)
	assert.Equal(t, 599.5, store.Snapshot().TimeRemaining)
}

func TestEndScenario(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterVolcanic)

	store.EndScenario()
	st := store.Snapshot()
	assert.Equal(t, types.PhaseEnded, st.Phase)
	assert.Equal(t, 600.0, st.TimeRemaining)
	require.NotNil(t, st.Scenario, "end screen still reads the scenario")
}

func TestRestartFromAnyState(t *testing.T) {
	setups := map[string]func(s *SessionStore){
		"menu":     func(s *SessionStore) {},
		"tutorial": func(s *SessionStore) { s.StartTutorial() },
		"active": func(s *SessionStore) {
			s.InitializeScenario(types.DisasterFire)
			s.AddDecision(twoOptionDecision("x"))
			s.UpdateScore(12)
		},
		"ended": func(s *SessionStore) {
			zone := "warehouse"
			s.InitializeScenario(types.DisasterFlood)
			s.SetCurrentZone(&zone)
			s.AllocateResources(types.ResourceAmounts{types.ResourceFoodPacks: -3})
			s.UpdateTime(601)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			store := NewSessionStore()
			setup(store)

			store.Restart()
			assert.Equal(t, initialState(), store.Snapshot())

			store.Restart()
			assert.Equal(t, initialState(), store.Snapshot())
		})
	}
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterTyphoon)
	store.AddDecision(twoOptionDecision("surge"))

	st := store.Snapshot()
	st.Scenario.Name = "changed"
	st.DecisionsWaiting[0].ID = "changed"
	st.Resources.Budget = 1

	fresh := store.Snapshot()
	assert.Equal(t, "Bagyong Maria", fresh.Scenario.Name)
	assert.Equal(t, "surge", fresh.DecisionsWaiting[0].ID)
	assert.Equal(t, 1000000, fresh.Resources.Budget)
}

func TestAdvance(t *testing.T) {
	store := NewSessionStore()
	store.InitializeScenario(types.DisasterEarthquake)

	notifications := 0
	store.Subscribe(func(current, previous types.GameState) { notifications++ })

	store.Advance(2.5)
	st := store.Snapshot()
	assert.Equal(t, 1, notifications, "clock and countdown move in one update")
	assert.InDelta(t, 597.5, st.TimeRemaining, 1e-9)
	assert.InDelta(t, 2.5, st.Scenario.TimeElapsed, 1e-9)
	assert.Equal(t, types.PhaseActiveScenario, st.Phase)

	store.Advance(-1)
	store.Advance(math.NaN())
	assert.Equal(t, st, store.Snapshot())
	assert.Equal(t, 1, notifications)

	store.Advance(1000)
	st = store.Snapshot()
	assert.Equal(t, 0.0, st.TimeRemaining)
	assert.Equal(t, types.PhaseEnded, st.Phase)
	assert.InDelta(t, 1002.5, st.Scenario.TimeElapsed, 1e-9)
}

func TestAdvanceOnlyWhileActive(t *testing.T) {
	store := NewSessionStore()
	store.Advance(5)
	assert.Equal(t, initialState(), store.Snapshot())

	store.InitializeScenario(types.DisasterFlood)
	store.EndScenario()
	ended := store.Snapshot()
	store.Advance(5)
	assert.Equal(t, ended, store.Snapshot())

	store.Restart()
	store.Advance(1)
	assert.Equal(t, initialState(), store.Snapshot())

	// the transient tutorial phase is not an active scenario
	store.SetPhase(types.PhaseTutorial)
	store.Advance(1)
	assert.Equal(t, DefaultTimeLimit, store.Snapshot().TimeRemaining)
}

func TestSetLoggerWhileNotifying(t *testing.T) {
	store := NewSessionStore()
	store.Subscribe(func(current, previous types.GameState) {
		if current.Score == 13 {
			panic("bad listener")
		}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			store.SetLogger(zap.NewNop())
		}
	}()
	for i := 0; i < 100; i++ {
		store.UpdateScore(0)
	}
	wg.Wait()

	core, logs := observer.New(zapcore.InfoLevel)
	store.SetLogger(zap.New(core))
	store.UpdateScore(13)

	assert.Equal(t, 13, store.Snapshot().Score)
	assert.Equal(t, 1, logs.FilterMessage("Listener panicked").Len())
}
