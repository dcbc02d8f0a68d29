package config

import "sort"

var Presets = map[string]func() *Config{
	"single_arm":   singleArm,
	"bimanual":     bimanual,
	"tactile_hand": tactileHand,
}

func singleArm() *Config {
	cfg := DefaultConfig()
	cfg.Name = "single_arm"
	cfg.Root = NodeConfig{
		Kind:    "robot",
		Model:   "kuka_iiwa",
		Options: map[string]any{"fixed_base": true},
	}
	cfg.Actions = map[string]any{
		"joint_position": []any{0.0, 0.5, 0.0, -1.0, 0.0, 0.5, 0.0},
	}
	return cfg
}

func bimanual() *Config {
	cfg := DefaultConfig()
	cfg.Name = "bimanual"
	cfg.Root = NodeConfig{
		Kind: "node",
		Children: Children{
			{Name: "left", Node: NodeConfig{
				Kind:    "robot",
				Model:   "sawyer",
				Options: map[string]any{"fixed_base": true, "base": []any{0.0, 0.5, 0.0}},
				Children: Children{
					{Name: "gripper", Node: NodeConfig{Kind: "gripper"}},
				},
			}},
			{Name: "right", Node: NodeConfig{
				Kind:    "robot",
				Model:   "sawyer",
				Options: map[string]any{"fixed_base": true, "base": []any{0.0, -0.5, 0.0}},
				Children: Children{
					{Name: "gripper", Node: NodeConfig{Kind: "gripper"}},
				},
			}},
		},
	}
	cfg.Actions = map[string]any{
		"left":  map[string]any{"gripper": map[string]any{"force": 1.0}},
		"right": map[string]any{"gripper": map[string]any{"force": 0.5}},
	}
	return cfg
}

func tactileHand() *Config {
	cfg := DefaultConfig()
	cfg.Name = "tactile_hand"
	cfg.Root = NodeConfig{
		Kind:    "robot",
		Model:   "sawyer",
		Options: map[string]any{"fixed_base": true},
		Children: Children{
			{Name: "hand", Node: NodeConfig{
				Kind:  "robot",
				Model: "allegro_hand",
				Options: map[string]any{
					"torque_control": true,
					"attach_to":      "sawyer_link_7",
					"state_fields":   []any{"joint_position", "joint_velocity"},
				},
				Children: Children{
					{Name: "digit", Node: NodeConfig{Kind: "digit", Options: map[string]any{"width": 60, "height": 80}}},
				},
			}},
		},
	}
	return cfg
}

// GetPreset returns a fresh copy of the named scene, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
