package model

// SwitchModelInfo describes a switch part and its rated mechanical life.
type SwitchModelInfo struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Manufacturer         string `json:"manufacturer"`
	RatedLifespanPresses uint64 `json:"rated_lifespan_presses"`
}

var switchModels = []SwitchModelInfo{
	{ID: "omron_d2mv_01_1c3", Name: "D2MV-01-1C3 (50g)", Manufacturer: "Omron", RatedLifespanPresses: 10_000_000},
	{ID: "omron_d2mv_01_1c2", Name: "D2MV-01-1C2 (25g)", Manufacturer: "Omron", RatedLifespanPresses: 10_000_000},
	{ID: "omron_v_10_1a4", Name: "V-10-1A4 (100g)", Manufacturer: "Omron", RatedLifespanPresses: 50_000_000},
	{ID: DefaultSwitchModelID, Name: "Generic / Unknown", Manufacturer: "Generic", RatedLifespanPresses: 1_000_000},
}

// SwitchModels returns the known switch models.
func SwitchModels() []SwitchModelInfo {
	out := make([]SwitchModelInfo, len(switchModels))
	copy(out, switchModels)
	return out
}

// LookupSwitchModel finds a model by id.
func LookupSwitchModel(id string) (SwitchModelInfo, bool) {
	for _, m := range switchModels {
		if m.ID == id {
			return m, true
		}
	}
	return SwitchModelInfo{}, false
}
