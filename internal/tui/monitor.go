// Package tui is a live terminal monitor for a stepping scene.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/viz"
)

// Scene is what the monitor drives. scene.Scene implements it.
type Scene interface {
	Name() string
	Step(ctx context.Context) error
	States() (attr.Map, error)
	Reset() error
	Time() float64
	Steps() int
}

const historyLen = 60

type tickMsg time.Time

func tick(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type Options struct {
	// StepsPerTick is the initial number of steps per frame.
	StepsPerTick int
	// Frame is the time between frames. Zero means 50ms.
	Frame time.Duration
	// MaxSteps stops stepping once the scene has taken this many. Zero
	// means no limit.
	MaxSteps int
}

type Model struct {
	scene Scene
	opts  Options
	speed int

	paused bool
	err    error

	keys    []string
	values  map[string][]float64
	cursor  int
	history map[string][]float64

	width, height int
}

func NewModel(s Scene, opts Options) *Model {
	if opts.StepsPerTick < 1 {
		opts.StepsPerTick = 1
	}
	if opts.Frame <= 0 {
		opts.Frame = 50 * time.Millisecond
	}
	m := &Model{
		scene:   s,
		opts:    opts,
		speed:   opts.StepsPerTick,
		history: make(map[string][]float64),
		width:   80,
		height:  24,
	}
	m.sample()
	return m
}

func (m *Model) Init() tea.Cmd { return tick(m.opts.Frame) }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tickMsg:
		if !m.paused && m.err == nil && !m.done() {
			for i := 0; i < m.speed && !m.done(); i++ {
				if err := m.scene.Step(context.Background()); err != nil {
					m.err = err
					break
				}
			}
			m.sample()
		}
		return m, tick(m.opts.Frame)
	}
	return m, nil
}

func (m *Model) done() bool {
	return m.opts.MaxSteps > 0 && m.scene.Steps() >= m.opts.MaxSteps
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case " ":
		m.paused = !m.paused
	case "r":
		if err := m.scene.Reset(); err != nil {
			m.err = err
			break
		}
		m.err = nil
		m.history = make(map[string][]float64)
		m.sample()
	case "+", "=":
		m.speed *= 2
	case "-":
		m.speed = max(1, m.speed/2)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.keys)-1 {
			m.cursor++
		}
	}
	return nil
}

// sample reads the states and appends the first element of every numeric
// field to its history.
func (m *Model) sample() {
	st, err := m.scene.States()
	if err != nil {
		m.err = err
		return
	}
	m.values = make(map[string][]float64)
	m.keys = m.keys[:0]
	for k, v := range st.Flatten(attr.Sep) {
		if _, ok := v.([]uint8); ok {
			continue
		}
		f, ok := attr.Floats(v)
		if !ok || len(f) == 0 {
			continue
		}
		m.values[k] = f
		m.keys = append(m.keys, k)
		h := append(m.history[k], f[0])
		if len(h) > historyLen {
			h = h[len(h)-historyLen:]
		}
		m.history[k] = h
	}
	sort.Strings(m.keys)
	m.cursor = min(m.cursor, max(0, len(m.keys)-1))
}

// Selected is the field whose history is drawn.
func (m *Model) Selected() string {
	if len(m.keys) == 0 {
		return ""
	}
	return m.keys[m.cursor]
}

func (m *Model) Speed() int { return m.speed }

func (m *Model) Paused() bool { return m.paused }

func (m *Model) Err() error { return m.err }

func (m *Model) View() string {
	var b strings.Builder

	status := viz.StatusRunning.Render("● running")
	switch {
	case m.err != nil:
		status = viz.StatusError.Render("✕ error")
	case m.done():
		status = viz.Subtle.Render("■ done")
	case m.paused:
		status = viz.StatusPaused.Render("○ paused")
	}
	fmt.Fprintf(&b, "\n  %s  %s  %s  %s\n",
		viz.Title.Render(m.scene.Name()), status,
		viz.MetricLabel.Render(fmt.Sprintf("t=%.3fs", m.scene.Time())),
		viz.MetricLabel.Render(fmt.Sprintf("step %d  ×%d", m.scene.Steps(), m.speed)))
	if m.opts.MaxSteps > 0 {
		fmt.Fprintf(&b, "  %s\n", viz.ProgressBar(float64(m.scene.Steps())/float64(m.opts.MaxSteps), 40))
	}
	b.WriteString("  " + viz.Separator(min(m.width-4, 72)) + "\n")

	rows := max(1, m.height-10)
	first := max(0, min(m.cursor-rows/2, len(m.keys)-rows))
	for i := first; i < len(m.keys) && i < first+rows; i++ {
		k := m.keys[i]
		marker := "  "
		label := viz.MetricLabel.Render(fmt.Sprintf("%-36s", k))
		if i == m.cursor {
			marker = viz.Title.Render("▸ ")
			label = viz.MetricValue.Render(fmt.Sprintf("%-36s", k))
		}
		fmt.Fprintf(&b, "  %s%s %s\n", marker, label, formatValues(m.values[k], 4))
	}

	if sel := m.Selected(); sel != "" {
		fmt.Fprintf(&b, "\n  %s %s\n", viz.Subtle.Render(sel), viz.SparkHigh.Render(viz.Sparkline(m.history[sel], 48)))
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n  %s\n", viz.StatusError.Render(m.err.Error()))
	}
	b.WriteString("\n" + viz.KeyHint.Render("  space pause  ±speed  ↑↓ select  r reset  q quit") + "\n")
	return b.String()
}

func formatValues(v []float64, n int) string {
	parts := make([]string, 0, n+1)
	for i, x := range v {
		if i == n {
			parts = append(parts, fmt.Sprintf("… (%d)", len(v)))
			break
		}
		parts = append(parts, fmt.Sprintf("%8.3f", x))
	}
	return strings.Join(parts, " ")
}

// Run shows the monitor until the user quits.
func Run(s Scene, opts Options) error {
	p := tea.NewProgram(NewModel(s, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
