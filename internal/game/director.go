package game

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/eoc-response-sim/config"
	"github.com/user/eoc-response-sim/internal/interfaces"
	"github.com/user/eoc-response-sim/internal/types"
	"go.uber.org/zap"
)

// decisionIDSeparator splits a generated decision id into template key and unique suffix
const decisionIDSeparator = ":"

// Director drives a session on a ticker: it advances the countdown and the
// scenario clock and injects catalog decisions while a scenario is active.
type Director struct {
	store      interfaces.SessionStore
	catalog    Catalog
	advisor    *Advisor
	diceRoller *DiceRoller
	config     config.GameConfig
	Logger     *zap.Logger

	sinceDecision time.Duration
	wasActive     bool
	scenarioType  types.DisasterType
	lastElapsed   float64

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewDirector creates a director for the given session
func NewDirector(store interfaces.SessionStore, catalog Catalog, cfg config.GameConfig) *Director {
	return &Director{
		store:      store,
		catalog:    catalog,
		advisor:    NewAdvisor(),
		diceRoller: NewDiceRoller(),
		config:     cfg,
		Logger:     zap.NewNop(),
		stopChan:   make(chan struct{}),
	}
}

// SetLogger replaces the director logger
func (d *Director) SetLogger(logger *zap.Logger) {
	d.Logger = logger
}

// SetDiceRoller replaces the dice roller, e.g. with a seeded one
func (d *Director) SetDiceRoller(roller *DiceRoller) {
	d.diceRoller = roller
}

// Start begins ticking until Stop is called or ctx is done
func (d *Director) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.TickInterval())
	go func() {
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case now := <-ticker.C:
				d.Tick(now.Sub(last))
				last = now
			case <-d.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the ticker loop
func (d *Director) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})
}

// Tick advances the session by elapsed wall time
func (d *Director) Tick(elapsed time.Duration) {
	st := d.store.Snapshot()
	if st.Phase != types.PhaseActiveScenario || st.Scenario == nil {
		d.wasActive = false
		return
	}
	if !d.wasActive || st.Scenario.Type != d.scenarioType || st.Scenario.TimeElapsed < d.lastElapsed {
		// a new scenario rolls for its first decision right away
		d.wasActive = true
		d.scenarioType = st.Scenario.Type
		d.sinceDecision = d.config.DecisionEvery()
	}

	d.store.Advance(elapsed.Seconds())

	st = d.store.Snapshot()
	if st.Phase != types.PhaseActiveScenario || st.Scenario == nil {
		if st.Phase == types.PhaseEnded && st.Scenario != nil {
			d.Logger.Info("Scenario ended",
				zap.String("scenario", st.Scenario.Name),
				zap.Float64("time_remaining", st.TimeRemaining),
				zap.Int("score", st.Score))
		}
		d.wasActive = false
		return
	}
	d.lastElapsed = st.Scenario.TimeElapsed

	d.sinceDecision += elapsed
	if d.sinceDecision >= d.config.DecisionEvery() {
		d.sinceDecision = 0
		d.maybeInjectDecision(st)
	}

	if d.config.Autopilot {
		d.resolveOldest()
	}
}

func (d *Director) maybeInjectDecision(st types.GameState) {
	if d.config.MaxWaitingDecisions > 0 && len(st.DecisionsWaiting) >= d.config.MaxWaitingDecisions {
		d.Logger.Debug("Decision queue full",
			zap.Int("waiting", len(st.DecisionsWaiting)))
		return
	}

	roll := d.diceRoller.Roll(100)
	triggered := roll <= d.config.RandomDecisionProbability
	d.Logger.Info("Decision roll result",
		zap.String("disaster", string(st.Scenario.Type)),
		zap.Int("roll", roll),
		zap.Int("required", d.config.RandomDecisionProbability),
		zap.Bool("decision_triggered", triggered))
	if !triggered {
		return
	}

	waiting := make(map[string]bool, len(st.DecisionsWaiting))
	for _, decision := range st.DecisionsWaiting {
		waiting[TemplateKey(decision.ID)] = true
	}
	var candidates []DecisionTemplate
	for _, tmpl := range d.catalog.Templates(st.Scenario.Type) {
		if !waiting[tmpl.Key] {
			candidates = append(candidates, tmpl)
		}
	}
	if len(candidates) == 0 {
		d.Logger.Debug("No decision templates available",
			zap.String("disaster", string(st.Scenario.Type)))
		return
	}

	tmpl := candidates[d.diceRoller.Roll(len(candidates))-1]
	decision := tmpl.Instantiate(tmpl.Key + decisionIDSeparator + uuid.New().String())
	d.store.AddDecision(decision)

	d.Logger.Info("Decision issued",
		zap.String("decision_id", decision.ID),
		zap.String("description", decision.Description),
		zap.Int("options_count", len(decision.Options)))
}

func (d *Director) resolveOldest() {
	st := d.store.Snapshot()
	if len(st.DecisionsWaiting) == 0 {
		return
	}
	oldest := st.DecisionsWaiting[0]
	best, err := d.advisor.Best(st, oldest.ID)
	if err != nil {
		d.Logger.Error("Autopilot could not pick an option",
			zap.String("decision_id", oldest.ID),
			zap.Error(err))
		return
	}
	d.Logger.Info("Autopilot resolved decision",
		zap.String("decision_id", oldest.ID),
		zap.Int("option", best.Index),
		zap.Int("effectiveness", best.Option.EffectivenessScore))
	d.store.MakeDecision(oldest.ID, best.Index)
}

// TemplateKey returns the catalog key a generated decision id was built from
func TemplateKey(decisionID string) string {
	key, _, _ := strings.Cut(decisionID, decisionIDSeparator)
	return key
}
