package attr

import (
	"fmt"
	"sort"
	"strings"
)

// Dump renders a nested mapping with sorted keys, one field per line.
// Non-mapping values are formatted with %v, or with their String method when
// they implement fmt.Stringer.
func Dump(v any, indent int) string {
	var b strings.Builder
	dump(&b, v, 0, indent)
	return b.String()
}

func dump(b *strings.Builder, v any, depth, indent int) {
	m, ok := mapping(v)
	if !ok {
		b.WriteString(format(v))
		return
	}
	if len(m) == 0 {
		b.WriteString("{}")
		return
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pad := strings.Repeat(" ", (depth+1)*indent)
	b.WriteString("{\n")
	for i, k := range keys {
		fmt.Fprintf(b, "%s%q: ", pad, k)
		dump(b, m[k], depth+1, indent)
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat(" ", depth*indent))
	b.WriteString("}")
}

// Mapper is implemented by nested schema types (such as space dicts) so Dump
// can walk them without importing their package.
type Mapper interface {
	Entries() map[string]any
}

func mapping(v any) (map[string]any, bool) {
	if b, ok := Branch(v); ok {
		return b, true
	}
	if m, ok := v.(Mapper); ok {
		return m.Entries(), true
	}
	return nil, false
}

func format(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%v", v)
}
