package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/space"
)

type unwrapper interface {
	Unwrap() robot.Component
}

func kind(c robot.Component) string {
	if u, ok := c.(unwrapper); ok {
		c = u.Unwrap()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", c), "*")
}

// localFields lists the entries of d that are not children of c, with their
// shapes.
func localFields(c robot.Component, d space.Dict) string {
	var parts []string
	for _, k := range d.Keys() {
		if _, ok := c.Base().Child(k); ok {
			continue
		}
		parts = append(parts, k+shape(d[k]))
	}
	return strings.Join(parts, " ")
}

func shape(s space.Space) string {
	sh := s.Shape()
	if len(sh) == 0 {
		return ""
	}
	dims := make([]string, len(sh))
	for i, n := range sh {
		dims[i] = fmt.Sprint(n)
	}
	return "[" + strings.Join(dims, "×") + "]"
}

// Tree draws c and its descendants, one line per component, with the
// fields each one declares itself.
func Tree(name string, c robot.Component) (string, error) {
	var b strings.Builder
	if err := tree(&b, name, c, "", ""); err != nil {
		return "", err
	}
	return b.String(), nil
}

func tree(b *strings.Builder, name string, c robot.Component, lead, indent string) error {
	ss, err := c.StateSpace()
	if err != nil {
		return err
	}
	as, err := c.ActionSpace()
	if err != nil {
		return err
	}

	line := lead + Title.Render(name) + " " + Subtle.Render("("+kind(c)+")")
	if f := localFields(c, ss); f != "" {
		line += "  " + MetricLabel.Render("state:") + " " + f
	}
	if f := localFields(c, as); f != "" {
		line += "  " + MetricLabel.Render("action:") + " " + f
	}
	b.WriteString(line + "\n")

	children := c.Base().Children()
	for i, ch := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		if err := tree(b, ch.Name, ch.Component, indent+branch, indent+next); err != nil {
			return err
		}
	}
	return nil
}

// Spaces lists every leaf of d by dot path.
func Spaces(d space.Dict) string {
	flat := d.Flatten()
	keys := make([]string, 0, len(flat))
	width := 0
	for k := range flat {
		keys = append(keys, k)
		width = max(width, lipgloss.Width(k))
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-*s", width, k)))
		b.WriteString("  ")
		b.WriteString(MetricValue.Render(flat[k].String()))
		b.WriteString("\n")
	}
	return b.String()
}
