package game

import (
	"fmt"
	"math"
	"sync"

	"github.com/user/eoc-response-sim/internal/interfaces"
	"github.com/user/eoc-response-sim/internal/types"
	"go.uber.org/zap"
)

// SessionStore is the single authoritative holder of one game session.
//
// Every operation is applied atomically under stateLock and never fails:
// invalid references degrade to no-ops. Listeners are notified synchronously
// in mutation order. A listener may call back into the store; the nested
// mutation is queued and delivered after the current round completes.
type SessionStore struct {
	state     types.GameState
	stateLock sync.Mutex

	listeners  []subscription
	nextID     uint64
	pending    []notification
	delivering bool

	Logger *zap.Logger
}

type subscription struct {
	id       uint64
	listener interfaces.Listener
}

type notification struct {
	current  types.GameState
	previous types.GameState
}

// Ensure SessionStore satisfies the interfaces.SessionStore interface
var _ interfaces.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session in its initial menu state
func NewSessionStore() *SessionStore {
	return &SessionStore{
		state:  initialState(),
		Logger: zap.NewNop(),
	}
}

// SetLogger replaces the store logger
func (s *SessionStore) SetLogger(logger *zap.Logger) {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	s.Logger = logger
}

// apply runs mutate against the live state. When mutate reports a change the
// new snapshot is queued for listeners; the goroutine that finds the queue idle
// drains it, so delivery order always equals mutation order.
func (s *SessionStore) apply(op string, mutate func(st *types.GameState) bool) {
	s.stateLock.Lock()
	logger := s.Logger
	previous := s.state.Clone()
	if !mutate(&s.state) {
		s.stateLock.Unlock()
		logger.Debug("Operation ignored", zap.String("op", op))
		return
	}
	current := s.state.Clone()
	s.pending = append(s.pending, notification{current: current, previous: previous})

	if previous.Phase != current.Phase {
		logger.Info("Phase changed",
			zap.String("op", op),
			zap.String("from", string(previous.Phase)),
			zap.String("to", string(current.Phase)))
	} else {
		logger.Debug("Operation applied", zap.String("op", op))
	}

	if s.delivering {
		s.stateLock.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		n := s.pending[0]
		s.pending = s.pending[1:]
		listeners := make([]subscription, len(s.listeners))
		copy(listeners, s.listeners)
		s.stateLock.Unlock()

		for _, sub := range listeners {
			notify(logger, sub, n)
		}

		s.stateLock.Lock()
	}
	s.delivering = false
	s.stateLock.Unlock()
}

func notify(logger *zap.Logger, sub subscription, n notification) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Listener panicked",
				zap.Uint64("subscription", sub.id),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	sub.listener(n.current, n.previous)
}

// Subscribe registers a listener and returns a function that removes it
func (s *SessionStore) Subscribe(listener interfaces.Listener) func() {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.stateLock.Lock()
			defer s.stateLock.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Snapshot returns a copy of the current state
func (s *SessionStore) Snapshot() types.GameState {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	return s.state.Clone()
}

// StartTutorial enters the tutorial phase and starts the typhoon scenario.
// The tutorial phase is observable by listeners for one notification round.
func (s *SessionStore) StartTutorial() {
	s.apply("start_tutorial", func(st *types.GameState) bool {
		st.Phase = types.PhaseTutorial
		st.Tutorial = true
		return true
	})
	s.apply("initialize_scenario", func(st *types.GameState) bool {
		return initializeScenario(st, types.DisasterTyphoon)
	})
}

// SetPhase overwrites the phase without validating the transition
func (s *SessionStore) SetPhase(phase types.GamePhase) {
	s.apply("set_phase", func(st *types.GameState) bool {
		st.Phase = phase
		return true
	})
}

// SetCurrentZone marks the zone the player is focused on. Nil clears it.
func (s *SessionStore) SetCurrentZone(zone *string) {
	s.apply("set_current_zone", func(st *types.GameState) bool {
		if zone == nil {
			st.CurrentZone = nil
			return true
		}
		z := *zone
		st.CurrentZone = &z
		return true
	})
}

// InitializeScenario resets resources, score, decisions and the countdown and
// starts the given disaster. Unknown disaster types are ignored.
func (s *SessionStore) InitializeScenario(disaster types.DisasterType) {
	s.apply("initialize_scenario", func(st *types.GameState) bool {
		if !initializeScenario(st, disaster) {
			return false
		}
		st.Tutorial = false
		return true
	})
}

func initializeScenario(st *types.GameState, disaster types.DisasterType) bool {
	tmpl, ok := ScenarioTemplate(disaster)
	if !ok {
		return false
	}
	st.Scenario = &tmpl
	st.Resources = BaselineResources()
	st.Score = 0
	st.DecisionsWaiting = make([]types.Decision, 0)
	st.CompletedDecisions = make([]string, 0)
	st.TimeRemaining = DefaultTimeLimit
	st.Phase = types.PhaseActiveScenario
	return true
}

// UpdateScenario merges update into the current scenario, if any
func (s *SessionStore) UpdateScenario(update types.ScenarioUpdate) {
	s.apply("update_scenario", func(st *types.GameState) bool {
		if st.Scenario == nil {
			return false
		}
		update.Apply(st.Scenario)
		return true
	})
}

// AddDecision appends a decision to the waiting list. Ids are not checked for uniqueness.
func (s *SessionStore) AddDecision(decision types.Decision) {
	decision = decision.Clone()
	s.apply("add_decision", func(st *types.GameState) bool {
		st.DecisionsWaiting = append(st.DecisionsWaiting, decision)
		return true
	})
}

// MakeDecision resolves a waiting decision with the option at optionIndex.
// Costs are deducted with a floor of zero, the option's effectiveness is added
// to the score and the decision moves from waiting to completed.
func (s *SessionStore) MakeDecision(decisionID string, optionIndex int) {
	s.apply("make_decision", func(st *types.GameState) bool {
		decision, ok := st.FindDecision(decisionID)
		if !ok {
			return false
		}
		if optionIndex < 0 || optionIndex >= len(decision.Options) {
			return false
		}
		option := decision.Options[optionIndex]

		for kind, cost := range option.ResourceCost {
			if cost == 0 {
				continue
			}
			if current, ok := st.Resources.Get(kind); ok {
				st.Resources.Set(kind, max(0, current-cost))
			}
		}

		st.Score += option.EffectivenessScore

		waiting := make([]types.Decision, 0, len(st.DecisionsWaiting))
		for _, d := range st.DecisionsWaiting {
			if d.ID != decisionID {
				waiting = append(waiting, d)
			}
		}
		st.DecisionsWaiting = waiting
		st.CompletedDecisions = append(st.CompletedDecisions, decisionID)
		return true
	})
}

// AllocateResources overwrites the named pools. Values are not clamped.
func (s *SessionStore) AllocateResources(allocation types.ResourceAmounts) {
	s.apply("allocate_resources", func(st *types.GameState) bool {
		for kind, value := range allocation {
			st.Resources.Set(kind, value)
		}
		return true
	})
}

// UpdateScore adds points to the cumulative score
func (s *SessionStore) UpdateScore(points int) {
	s.apply("update_score", func(st *types.GameState) bool {
		st.Score += points
		return true
	})
}

// UpdateTime deducts delta seconds from the countdown, flooring at zero.
// Reaching zero during an active scenario ends it in the same update.
// Negative or NaN deltas are ignored so the countdown never rises.
func (s *SessionStore) UpdateTime(delta float64) {
	s.apply("update_time", func(st *types.GameState) bool {
		if math.IsNaN(delta) || delta < 0 {
			return false
		}
		remaining := max(0, st.TimeRemaining-delta)
		st.TimeRemaining = remaining
		if remaining == 0 && st.Phase == types.PhaseActiveScenario {
			st.Phase = types.PhaseEnded
		}
		return true
	})
}

// Advance runs the scenario clock forward by seconds: the countdown drops
// (floored at zero) and the scenario's elapsed time grows, in one update.
// It does nothing unless a scenario is active, so a concurrent restart or end
// is never overwritten. Reaching zero ends the scenario.
func (s *SessionStore) Advance(seconds float64) {
	s.apply("advance", func(st *types.GameState) bool {
		if math.IsNaN(seconds) || seconds < 0 {
			return false
		}
		if st.Phase != types.PhaseActiveScenario || st.Scenario == nil {
			return false
		}
		st.Scenario.TimeElapsed += seconds
		st.TimeRemaining = max(0, st.TimeRemaining-seconds)
		if st.TimeRemaining == 0 {
			st.Phase = types.PhaseEnded
		}
		return true
	})
}

// EndScenario ends the session regardless of the countdown
func (s *SessionStore) EndScenario() {
	s.apply("end_scenario", func(st *types.GameState) bool {
		st.Phase = types.PhaseEnded
		return true
	})
}

// Restart returns the session to its initial menu state
func (s *SessionStore) Restart() {
	s.apply("restart", func(st *types.GameState) bool {
		*st = initialState()
		return true
	})
}
