package types

// GamePhase controls which presentation surface is active
type GamePhase string

const (
	PhaseMenu           GamePhase = "menu"
	PhaseTutorial       GamePhase = "tutorial"
	PhaseActiveScenario GamePhase = "active_scenario"
	PhaseEnded          GamePhase = "ended"
)

// Valid reports whether p is one of the known phases
func (p GamePhase) Valid() bool {
	switch p {
	case PhaseMenu, PhaseTutorial, PhaseActiveScenario, PhaseEnded:
		return true
	}
	return false
}

// DisasterType selects one of the static scenario templates
type DisasterType string

const (
	DisasterTyphoon    DisasterType = "typhoon"
	DisasterEarthquake DisasterType = "earthquake"
	DisasterFlood      DisasterType = "flood"
	DisasterVolcanic   DisasterType = "volcanic"
	DisasterFire       DisasterType = "fire"
)

// DisasterTypes lists every disaster type in menu order
func DisasterTypes() []DisasterType {
	return []DisasterType{DisasterTyphoon, DisasterEarthquake, DisasterFlood, DisasterVolcanic, DisasterFire}
}

// Valid reports whether d is one of the known disaster types
func (d DisasterType) Valid() bool {
	for _, known := range DisasterTypes() {
		if d == known {
			return true
		}
	}
	return false
}

// ScenarioData represents the disaster instance in progress
type ScenarioData struct {
	Type               DisasterType `json:"type"`
	Name               string       `json:"name"`
	Severity           int          `json:"severity"` // 1-5
	TimeElapsed        float64      `json:"time_elapsed"`
	AffectedPopulation int          `json:"affected_population"`
	Evacuees           int          `json:"evacuees"`
	Casualties         int          `json:"casualties"`
	DamageEstimate     int64        `json:"damage_estimate"`
}

// ScenarioUpdate is a partial update of ScenarioData. Nil fields are left untouched.
type ScenarioUpdate struct {
	Type               *DisasterType `json:"type,omitempty"`
	Name               *string       `json:"name,omitempty"`
	Severity           *int          `json:"severity,omitempty"`
	TimeElapsed        *float64      `json:"time_elapsed,omitempty"`
	AffectedPopulation *int          `json:"affected_population,omitempty"`
	Evacuees           *int          `json:"evacuees,omitempty"`
	Casualties         *int          `json:"casualties,omitempty"`
	DamageEstimate     *int64        `json:"damage_estimate,omitempty"`
}

// Apply merges the non-nil fields of u into s
func (u ScenarioUpdate) Apply(s *ScenarioData) {
	if u.Type != nil {
		s.Type = *u.Type
	}
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Severity != nil {
		s.Severity = *u.Severity
	}
	if u.TimeElapsed != nil {
		s.TimeElapsed = *u.TimeElapsed
	}
	if u.AffectedPopulation != nil {
		s.AffectedPopulation = *u.AffectedPopulation
	}
	if u.Evacuees != nil {
		s.Evacuees = *u.Evacuees
	}
	if u.Casualties != nil {
		s.Casualties = *u.Casualties
	}
	if u.DamageEstimate != nil {
		s.DamageEstimate = *u.DamageEstimate
	}
}

// ResourceKind names one resource pool
type ResourceKind string

const (
	ResourcePersonnel       ResourceKind = "personnel"
	ResourceMedicalSupplies ResourceKind = "medical_supplies"
	ResourceFoodPacks       ResourceKind = "food_packs"
	ResourceRescueEquipment ResourceKind = "rescue_equipment"
	ResourceVehicles        ResourceKind = "vehicles"
	ResourceBudget          ResourceKind = "budget"
)

// ResourceKinds lists every pool in display order
func ResourceKinds() []ResourceKind {
	return []ResourceKind{
		ResourcePersonnel,
		ResourceMedicalSupplies,
		ResourceFoodPacks,
		ResourceRescueEquipment,
		ResourceVehicles,
		ResourceBudget,
	}
}

// Valid reports whether k names a known pool
func (k ResourceKind) Valid() bool {
	for _, known := range ResourceKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Resources holds the finite pools the player spends
type Resources struct {
	Personnel       int `json:"personnel"`
	MedicalSupplies int `json:"medical_supplies"`
	FoodPacks       int `json:"food_packs"`
	RescueEquipment int `json:"rescue_equipment"`
	Vehicles        int `json:"vehicles"`
	Budget          int `json:"budget"`
}

func (r *Resources) field(kind ResourceKind) *int {
	switch kind {
	case ResourcePersonnel:
		return &r.Personnel
	case ResourceMedicalSupplies:
		return &r.MedicalSupplies
	case ResourceFoodPacks:
		return &r.FoodPacks
	case ResourceRescueEquipment:
		return &r.RescueEquipment
	case ResourceVehicles:
		return &r.Vehicles
	case ResourceBudget:
		return &r.Budget
	}
	return nil
}

// Get returns the value of a pool. ok is false for unknown kinds.
func (r Resources) Get(kind ResourceKind) (value int, ok bool) {
	p := r.field(kind)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set overwrites a pool. Unknown kinds are ignored and reported as false.
func (r *Resources) Set(kind ResourceKind, value int) bool {
	p := r.field(kind)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// ResourceAmounts maps a subset of pools to amounts. It is used both for
// decision costs and for direct allocations.
type ResourceAmounts map[ResourceKind]int

// Clone returns a copy of a, preserving nil
func (a ResourceAmounts) Clone() ResourceAmounts {
	if a == nil {
		return nil
	}
	out := make(ResourceAmounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// DecisionOption is one response to a decision prompt
type DecisionOption struct {
	Text               string          `json:"text"`
	ResourceCost       ResourceAmounts `json:"resource_cost"`
	EffectivenessScore int             `json:"effectiveness_score"`
}

// Decision represents a prompt waiting for the player
type Decision struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Options     []DecisionOption `json:"options"`
}

// Clone returns a deep copy of d
func (d Decision) Clone() Decision {
	out := d
	if d.Options != nil {
		out.Options = make([]DecisionOption, len(d.Options))
		for i, opt := range d.Options {
			opt.ResourceCost = opt.ResourceCost.Clone()
			out.Options[i] = opt
		}
	}
	return out
}

// GameState is the aggregate session state owned by the session store.
// Values handed out by the store are snapshots and must be treated as read-only.
type GameState struct {
	Phase              GamePhase     `json:"phase"`
	CurrentZone        *string       `json:"current_zone"`
	Scenario           *ScenarioData `json:"scenario"`
	Resources          Resources     `json:"resources"`
	Score              int           `json:"score"`
	DecisionsWaiting   []Decision    `json:"decisions_waiting"`
	CompletedDecisions []string      `json:"completed_decisions"`
	TimeRemaining      float64       `json:"time_remaining"`

	// Tutorial is set by the tutorial entry point and survives the cascade
	// into the active scenario so presentation can keep tutorial framing.
	Tutorial bool `json:"tutorial"`
}

// Clone returns a deep copy of s. Decision lists are never nil in the copy.
func (s GameState) Clone() GameState {
	out := s
	if s.CurrentZone != nil {
		zone := *s.CurrentZone
		out.CurrentZone = &zone
	}
	if s.Scenario != nil {
		scenario := *s.Scenario
		out.Scenario = &scenario
	}
	out.DecisionsWaiting = make([]Decision, len(s.DecisionsWaiting))
	for i, d := range s.DecisionsWaiting {
		out.DecisionsWaiting[i] = d.Clone()
	}
	out.CompletedDecisions = make([]string, len(s.CompletedDecisions))
	copy(out.CompletedDecisions, s.CompletedDecisions)
	return out
}

// FindDecision returns the first waiting decision with the given id
func (s GameState) FindDecision(id string) (Decision, bool) {
	for _, d := range s.DecisionsWaiting {
		if d.ID == id {
			return d, true
		}
	}
	return Decision{}, false
}
