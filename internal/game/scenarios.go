package game

import "github.com/user/eoc-response-sim/internal/types"

// DefaultTimeLimit is the countdown, in seconds, every scenario starts with
const DefaultTimeLimit = 600.0

// BaselineResources returns the pools every session and scenario starts with
func BaselineResources() types.Resources {
	return types.Resources{
		Personnel:       100,
		MedicalSupplies: 50,
		FoodPacks:       200,
		RescueEquipment: 30,
		Vehicles:        15,
		Budget:          1000000,
	}
}

var scenarioTemplates = map[types.DisasterType]types.ScenarioData{
	types.DisasterTyphoon: {
		Type:               types.DisasterTyphoon,
		Name:               "Bagyong Maria",
		Severity:           4,
		AffectedPopulation: 50000,
		Evacuees:           5000,
		Casualties:         0,
		DamageEstimate:     50000000,
	},
	types.DisasterEarthquake: {
		Type:               types.DisasterEarthquake,
		Name:               "7.2 Magnitude Earthquake",
		Severity:           5,
		AffectedPopulation: 100000,
		Evacuees:           20000,
		Casualties:         50,
		DamageEstimate:     200000000,
	},
	types.DisasterFlood: {
		Type:               types.DisasterFlood,
		Name:               "Flash Flood",
		Severity:           3,
		AffectedPopulation: 30000,
		Evacuees:           3000,
		Casualties:         5,
		DamageEstimate:     20000000,
	},
	types.DisasterVolcanic: {
		Type:               types.DisasterVolcanic,
		Name:               "Volcanic Eruption Alert",
		Severity:           5,
		AffectedPopulation: 80000,
		Evacuees:           15000,
		Casualties:         0,
		DamageEstimate:     100000000,
	},
	types.DisasterFire: {
		Type:               types.DisasterFire,
		Name:               "Urban Fire",
		Severity:           2,
		AffectedPopulation: 5000,
		Evacuees:           500,
		Casualties:         2,
		DamageEstimate:     5000000,
	},
}

// ScenarioTemplate returns a fresh copy of the template for a disaster type
func ScenarioTemplate(disaster types.DisasterType) (types.ScenarioData, bool) {
	tmpl, ok := scenarioTemplates[disaster]
	return tmpl, ok
}

// initialState is the snapshot a new or restarted session holds
func initialState() types.GameState {
	return types.GameState{
		Phase:              types.PhaseMenu,
		Resources:          BaselineResources(),
		DecisionsWaiting:   make([]types.Decision, 0),
		CompletedDecisions: make([]string, 0),
		TimeRemaining:      DefaultTimeLimit,
	}
}
