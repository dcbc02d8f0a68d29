package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bxhttp "github.com/san-kum/bulletx/internal/adapters/http"
	"github.com/san-kum/bulletx/internal/config"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/scene"
	"github.com/san-kum/bulletx/internal/space"
	"github.com/san-kum/bulletx/internal/telemetry"
)

func newServer(t *testing.T, opts ...bxhttp.Option) (http.Handler, *scene.Scene) {
	t.Helper()
	cfg := config.GetPreset("bimanual")
	cfg.Actions = nil
	s, err := scene.New(cfg)
	require.NoError(t, err)
	return bxhttp.NewHandler(s, opts...), s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSpaces(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodGet, "/spaces/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	left := got["left"].(map[string]any)
	pos := left["joint_position"].(map[string]any)
	assert.Equal(t, "box", pos["type"])
	assert.Equal(t, []any{7.0}, pos["shape"])
	grip := left["gripper"].(map[string]any)["position"].(map[string]any)
	assert.Equal(t, []any{0.0}, grip["low"])

	w = do(t, h, http.MethodGet, "/spaces/action", "")
	require.Equal(t, http.StatusOK, w.Code)
	got = decode(t, w)
	assert.Contains(t, got, "right")
}

func TestDescribeInfiniteBounds(t *testing.T) {
	d := space.Dict{"tau": space.Unbounded(2)}
	data, err := json.Marshal(bxhttp.Describe(d))
	require.NoError(t, err)
	assert.JSONEq(t, `{"tau":{"type":"box","shape":[2],"low":[null,null],"high":[null,null]}}`, string(data))
}

func TestActionsAndStates(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodPost, "/actions", `{"left":{"gripper":{"force":1}},"elbow":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"elbow"}, decode(t, w)["unmatched"])

	w = do(t, h, http.MethodGet, "/states?path=left.gripper.position", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.5", strings.TrimSpace(w.Body.String()))

	w = do(t, h, http.MethodGet, "/states?path=left.wrist", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/states", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "right")
}

func TestStrictActions(t *testing.T) {
	h, s := newServer(t)

	w := do(t, h, http.MethodPost, "/actions?mode=strict", `{"left":{"gripper":{"force":1}},"elbow":2}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []any{"elbow"}, decode(t, w)["unmatched"])

	states, err := s.States()
	require.NoError(t, err)
	pos, _ := states.Lookup("left.gripper.position")
	assert.Zero(t, pos, "strict rejection must not apply anything")

	w = do(t, h, http.MethodPost, "/actions?mode=loose", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDefaultModeOption(t *testing.T) {
	h, _ := newServer(t, bxhttp.WithMode(robot.Strict))
	w := do(t, h, http.MethodPost, "/actions", `{"elbow":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBadRequests(t *testing.T) {
	h, _ := newServer(t)

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"not json", "/actions", `{`},
		{"not an object", "/actions", `[1, 2]`},
		{"child value not a mapping", "/actions", `{"left": 3}`},
		{"wrong joint count", "/actions", `{"left": {"joint_position": [1, 2]}}`},
		{"non-numeric joints", "/actions", `{"left": {"joint_position": "up"}}`},
		{"non-numeric force", "/actions", `{"right": {"gripper": {"force": "hard"}}}`},
		{"force vector", "/actions", `{"right": {"gripper": {"force": [0.1, 0.2]}}}`},
		{"bad step count", "/step?n=zero", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestStepAndReset(t *testing.T) {
	h, s := newServer(t)

	w := do(t, h, http.MethodPost, "/step?n=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, 3.0, got["steps"])
	assert.InDelta(t, 3*config.DefaultTimeStep, got["time"], 1e-12)
	assert.Equal(t, 3, s.Steps())

	do(t, h, http.MethodPost, "/actions", `{"right":{"gripper":{"force":1}}}`)
	w = do(t, h, http.MethodPost, "/reset", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	states, err := s.States()
	require.NoError(t, err)
	pos, _ := states.Lookup("right.gripper.position")
	assert.Zero(t, pos)
}

func TestSummary(t *testing.T) {
	h, _ := newServer(t)
	w := do(t, h, http.MethodGet, "/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "State Space:")
	assert.Contains(t, w.Body.String(), "Current States:")
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)
	s, err := scene.New(config.GetPreset("bimanual"), scene.WithMetrics(m))
	require.NoError(t, err)
	h := bxhttp.NewHandler(s, bxhttp.WithMetrics(reg))

	do(t, h, http.MethodPost, "/step", "")
	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bulletx_simulation_steps_total 1")

	h, _ = newServer(t)
	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
