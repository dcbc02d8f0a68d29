package scene_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/body"
	"github.com/san-kum/bulletx/internal/config"
	"github.com/san-kum/bulletx/internal/engine"
	"github.com/san-kum/bulletx/internal/engine/memory"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/scene"
	"github.com/san-kum/bulletx/internal/telemetry"
)

func TestBimanualTree(t *testing.T) {
	s, err := scene.New(config.GetPreset("bimanual"))
	require.NoError(t, err)

	assert.Equal(t, []string{"left", "right"}, s.Root().Base().ChildNames())

	ss, err := s.StateSpace()
	require.NoError(t, err)
	_, ok := ss.Lookup("left.gripper.position")
	assert.True(t, ok)
	pos, ok := ss.Box("right.joint_position")
	require.True(t, ok)
	assert.Equal(t, []int{7}, pos.Shape())

	as, err := s.ActionSpace()
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right"}, as.Keys())
	_, ok = as.Lookup("right.gripper.force")
	assert.True(t, ok)
}

func TestStepAppliesStandingActions(t *testing.T) {
	s, err := scene.New(config.GetPreset("bimanual"))
	require.NoError(t, err)

	require.NoError(t, s.Step(context.Background()))
	assert.Equal(t, 1, s.Steps())
	assert.InDelta(t, config.DefaultTimeStep, s.Time(), 1e-12)

	states, err := s.States()
	require.NoError(t, err)
	left, _ := states.Lookup("left.gripper.position")
	right, _ := states.Lookup("right.gripper.position")
	assert.InDelta(t, 0.5, left, 1e-12)
	assert.InDelta(t, 0.25, right, 1e-12)

	require.NoError(t, s.Reset())
	states, err = s.States()
	require.NoError(t, err)
	left, _ = states.Lookup("left.gripper.position")
	assert.Zero(t, left)
}

func TestRecordTracksTarget(t *testing.T) {
	cfg := config.GetPreset("single_arm")
	cfg.Steps = 24
	cfg.RecordEvery = 8
	s, err := scene.New(cfg)
	require.NoError(t, err)

	run, err := s.Record(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Rows, 4)
	assert.Equal(t, "single_arm", run.Meta.Scene)
	assert.Equal(t, "rk4", run.Meta.Integrator)
	assert.Contains(t, run.Columns, "joint_position[1]")

	q1, err := run.Column("joint_position[1]")
	require.NoError(t, err)
	assert.Zero(t, q1[0])
	assert.Greater(t, q1[3], 0.0)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := scene.New(config.GetPreset("single_arm"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err = s.Run(ctx, 10, 1, func(step int, _ float64, _ attr.Map) error {
		calls++
		if step == 3 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, s.Steps())
}

func TestStrictActionsRejectTypos(t *testing.T) {
	cfg := config.GetPreset("single_arm")
	cfg.StrictActions = true
	cfg.Actions = map[string]any{"joint_positon": []any{0.0}}
	s, err := scene.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, robot.Strict, s.Mode())

	err = s.Step(context.Background())
	assert.ErrorIs(t, err, robot.ErrUnmatchedKey)
	assert.Zero(t, s.Steps())

	unmatched, err := s.Dispatch(attr.Map{"joint_positon": []float64{0}}, robot.Lenient)
	require.NoError(t, err)
	assert.Equal(t, []string{"joint_positon"}, unmatched)
}

func TestRecordKeepsUnmatchedPaths(t *testing.T) {
	cfg := config.GetPreset("bimanual")
	cfg.Steps = 2
	cfg.Actions["left"].(map[string]any)["grip"] = 1.0
	s, err := scene.New(cfg)
	require.NoError(t, err)

	run, err := s.Record(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"left.grip"}, run.Meta.Unmatched)

	s.SetActions(nil)
	assert.Empty(t, s.Unmatched())
}

func TestTactileHand(t *testing.T) {
	s, err := scene.New(config.GetPreset("tactile_hand"))
	require.NoError(t, err)

	hand, err := robot.Find(s.Root(), "hand")
	require.NoError(t, err)
	r, ok := hand.(*body.Robot)
	require.True(t, ok)
	assert.True(t, r.TorqueControl())
	assert.Equal(t, 16, r.NumDOFs())

	ss, err := s.StateSpace()
	require.NoError(t, err)
	assert.Equal(t, []string{"digit", "joint_position", "joint_velocity"}, ss.Sub("hand").Keys())
	img, ok := ss.Box("hand.digit.image")
	require.True(t, ok)
	assert.Equal(t, []int{80, 60, 3}, img.Shape())

	as, err := s.ActionSpace()
	require.NoError(t, err)
	torque, ok := as.Box("hand.joint_torque")
	require.True(t, ok)
	assert.Equal(t, []int{16}, torque.Shape())

	arm := s.Root().(*body.Robot)
	link, err := arm.LinkStateByName("sawyer_link_7")
	require.NoError(t, err)
	base, err := r.BasePose()
	require.NoError(t, err)
	assert.InDeltaSlice(t, link.WorldPosition[:], base.Position[:], 1e-9)

	require.NoError(t, s.Step(context.Background()))
	base, err = r.BasePose()
	require.NoError(t, err)
	assert.InDeltaSlice(t, link.WorldPosition[:], base.Position[:], 1e-6)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		root config.NodeConfig
		want error
	}{
		{
			name: "unknown kind",
			root: config.NodeConfig{Kind: "node", Children: config.Children{
				{Name: "arm", Node: config.NodeConfig{Kind: "hexapod"}},
			}},
			want: scene.ErrUnknownKind,
		},
		{
			name: "misspelt option",
			root: config.NodeConfig{Kind: "robot", Model: "two_link", Options: map[string]any{"fixedbase": true}},
			want: scene.ErrBadOptions,
		},
		{
			name: "robot without model",
			root: config.NodeConfig{Kind: "robot"},
			want: scene.ErrBadOptions,
		},
		{
			name: "attach under a plain node",
			root: config.NodeConfig{Kind: "node", Children: config.Children{
				{Name: "hand", Node: config.NodeConfig{
					Kind: "robot", Model: "allegro_hand",
					Options: map[string]any{"attach_to": "palm"},
				}},
			}},
			want: scene.ErrBadOptions,
		},
		{
			name: "bad base",
			root: config.NodeConfig{Kind: "robot", Model: "two_link", Options: map[string]any{"base": []any{1.0, 2.0}}},
			want: scene.ErrBadOptions,
		},
		{
			name: "name collision",
			root: config.NodeConfig{Kind: "robot", Model: "two_link", Children: config.Children{
				{Name: "joint_position", Node: config.NodeConfig{Kind: "gripper"}},
			}},
			want: robot.ErrNameCollision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Root = tt.root
			_, err := scene.New(cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFreeJointsAndZeroPose(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Root = config.NodeConfig{
		Kind:  "robot",
		Model: "kuka_iiwa",
		Options: map[string]any{
			"fixed_base":   true,
			"free_joints":  []any{"lbr_iiwa_joint_2", "lbr_iiwa_joint_4"},
			"zero_pose":    []any{0.5, -0.5},
			"state_fields": []any{"joint_position"},
		},
	}
	s, err := scene.New(cfg)
	require.NoError(t, err)

	states, err := s.States()
	require.NoError(t, err)
	assert.Equal(t, []string{"joint_position"}, states.Keys())
	assert.Equal(t, []float64{0.5, -0.5}, states["joint_position"])
}

func TestMetricsWrapRoot(t *testing.T) {
	m := telemetry.NewMetrics(nil)
	s, err := scene.New(config.GetPreset("bimanual"), scene.WithMetrics(m))
	require.NoError(t, err)

	_, ok := s.Root().(*telemetry.Instrumented)
	assert.True(t, ok)
	require.NoError(t, s.Step(context.Background()))
	_, err = s.Dispatch(attr.Map{"elbow": 1.0}, robot.Lenient)
	require.NoError(t, err)
}

func TestRegistryKinds(t *testing.T) {
	r := scene.NewRegistry()
	assert.Equal(t, []string{"digit", "gripper", "node", "robot"}, r.Kinds())
}

func TestBuildFallsBackToDefaultTransport(t *testing.T) {
	r := scene.NewRegistry()
	cfg := config.NodeConfig{Kind: "robot", Model: "two_link"}

	_, err := r.Build(scene.Env{}, cfg)
	assert.ErrorIs(t, err, engine.ErrNotConnected)

	restore := engine.Use(memory.New())
	defer restore()
	c, err := r.Build(scene.Env{}, cfg)
	require.NoError(t, err)
	assert.IsType(t, &body.Robot{}, c)
}

func TestRecordAll(t *testing.T) {
	arm := config.GetPreset("single_arm")
	arm.Steps = 8
	pair := config.GetPreset("bimanual")
	pair.Steps = 4
	pair.RecordEvery = 2

	runs, err := scene.RecordAll(context.Background(), []*config.Config{arm, pair})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "single_arm", runs[0].Meta.Scene)
	assert.Len(t, runs[0].Rows, 9)
	assert.Equal(t, "bimanual", runs[1].Meta.Scene)
	assert.Len(t, runs[1].Rows, 3)
}

func TestRecordAllReportsFailure(t *testing.T) {
	long := config.GetPreset("single_arm")
	long.Steps = 100000
	bad := config.DefaultConfig()
	bad.Name = "bad"
	bad.Root = config.NodeConfig{Kind: "hexapod"}

	_, err := scene.RecordAll(context.Background(), []*config.Config{long, bad})
	assert.ErrorIs(t, err, scene.ErrUnknownKind)
	assert.ErrorContains(t, err, `scene "bad"`)
}

func TestTransportParamsApplied(t *testing.T) {
	cfg := config.GetPreset("single_arm")
	cfg.Transport.TimeStep = 0.01
	cfg.Transport.Gravity = [3]float64{0, 0, -1.62}
	cfg.Transport.Kp = 100
	s, err := scene.New(cfg)
	require.NoError(t, err)

	params := s.World().Params()
	assert.Equal(t, 0.01, params["time_step"])
	assert.Equal(t, -1.62, params["gravity_z"])
	assert.Equal(t, 100.0, params["kp"])
	assert.Equal(t, config.DefaultKd, params["kd"])
}
