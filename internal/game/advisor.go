package game

import (
	"errors"
	"sort"

	"github.com/user/eoc-response-sim/internal/types"
)

// ErrDecisionNotFound is returned when a decision id is not waiting
var ErrDecisionNotFound = errors.New("decision not found")

// Recommendation scores one option of a waiting decision
type Recommendation struct {
	Index      int                  `json:"index"`
	Option     types.DecisionOption `json:"option"`
	Affordable bool                 `json:"affordable"`
	// CostRatio is the option cost relative to the baseline pools
	CostRatio float64 `json:"cost_ratio"`
}

// Advisor ranks decision options for hints and autopilot play
type Advisor struct {
	baseline types.Resources
}

// NewAdvisor creates an advisor that normalizes costs against the baseline pools
func NewAdvisor() *Advisor {
	return &Advisor{baseline: BaselineResources()}
}

// Recommend ranks the options of a waiting decision: affordable options first,
// then higher effectiveness, then lower relative cost.
func (a *Advisor) Recommend(st types.GameState, decisionID string) ([]Recommendation, error) {
	decision, ok := st.FindDecision(decisionID)
	if !ok {
		return nil, ErrDecisionNotFound
	}

	recs := make([]Recommendation, 0, len(decision.Options))
	for i, option := range decision.Options {
		recs = append(recs, Recommendation{
			Index:      i,
			Option:     option,
			Affordable: affordable(st.Resources, option.ResourceCost),
			CostRatio:  a.costRatio(option.ResourceCost),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Affordable != recs[j].Affordable {
			return recs[i].Affordable
		}
		if recs[i].Option.EffectivenessScore != recs[j].Option.EffectivenessScore {
			return recs[i].Option.EffectivenessScore > recs[j].Option.EffectivenessScore
		}
		return recs[i].CostRatio < recs[j].CostRatio
	})
	return recs, nil
}

// Best returns the top ranked option of a waiting decision
func (a *Advisor) Best(st types.GameState, decisionID string) (Recommendation, error) {
	recs, err := a.Recommend(st, decisionID)
	if err != nil {
		return Recommendation{}, err
	}
	if len(recs) == 0 {
		return Recommendation{}, errors.New("decision has no options")
	}
	return recs[0], nil
}

func affordable(pools types.Resources, cost types.ResourceAmounts) bool {
	for kind, amount := range cost {
		current, ok := pools.Get(kind)
		if ok && amount > current {
			return false
		}
	}
	return true
}

func (a *Advisor) costRatio(cost types.ResourceAmounts) float64 {
	var ratio float64
	for kind, amount := range cost {
		base, ok := a.baseline.Get(kind)
		if !ok || base == 0 {
			continue
		}
		ratio += float64(amount) / float64(base)
	}
	return ratio
}
