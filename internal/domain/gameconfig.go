package domain

// GameConfig is the client-facing world configuration shipped with every
// race. The renderer only cares about JSON shape, so it stays schemaless.
type GameConfig map[string]any

// NewGameConfig builds the default world for a given seed. Lane count and
// initial lane are adjusted by the session service before a multiplayer start.
func NewGameConfig(seed string, maxLanes int) GameConfig {
	return GameConfig{
		"world": map[string]any{
			"tileLength": 30,
			"seed":       seed,
			"numTiles":   12,
			"curvature":  -0.0003,
			"fog": map[string]any{
				"color": "#000816",
				"near":  30,
				"far":   300,
			},
		},
		"zones": map[string]any{
			"segmentLength": 40,
			"sequence":      []string{"city", "suburbs", "industrial", "bridge", "nature"},
		},
		"lanes": map[string]any{
			"width":    4.5,
			"maxLanes": maxLanes,
		},
		"player": map[string]any{
			"scale": 2.2,
			"speed": map[string]any{
				"initial":   20,
				"increment": 0.5,
				"max":       50,
			},
			"initialLane":     (maxLanes + 1) / 2,
			"laneChangeSpeed": 10,
		},
	}
}
