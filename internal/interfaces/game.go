package interfaces

import "github.com/user/eoc-response-sim/internal/types"

// Listener receives the state after a mutation together with the state before it
type Listener func(current, previous types.GameState)

// SessionStore defines the operations presentation code may dispatch
type SessionStore interface {
	StartTutorial()
	SetPhase(phase types.GamePhase)
	SetCurrentZone(zone *string)
	InitializeScenario(disaster types.DisasterType)
	UpdateScenario(update types.ScenarioUpdate)
	AddDecision(decision types.Decision)
	MakeDecision(decisionID string, optionIndex int)
	AllocateResources(allocation types.ResourceAmounts)
	UpdateScore(points int)
	UpdateTime(delta float64)
	Advance(seconds float64)
	EndScenario()
	Restart()

	Snapshot() types.GameState
	Subscribe(listener Listener) (unsubscribe func())
}
