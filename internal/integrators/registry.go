package integrators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/bulletx/internal/dynamo"
)

var factories = map[string]func() dynamo.Integrator{
	"rk4":    func() dynamo.Integrator { return NewRK4() },
	"euler":  func() dynamo.Integrator { return NewEuler() },
	"verlet": func() dynamo.Integrator { return NewVerlet() },
}

// ByName returns a fresh integrator. An empty name selects RK4.
func ByName(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = "rk4"
	}
	f, ok := factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("integrators: unknown integrator %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return f(), nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
