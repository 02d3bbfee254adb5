package diff

import (
	"fmt"
	"strings"
)

// Describe returns a human-readable summary of the diff, one line per
// object, details indented beneath modified objects.
func Describe(d SchemaDiff) string {
	if !d.HasChanges() {
		return "schemas match"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d change(s) between %s and %s\n", len(d.Changes), orUnnamed(d.Source), orUnnamed(d.Target))
	for _, typ := range []ObjectType{ObjectTable, ObjectView, ObjectProcedure, ObjectFunction, ObjectTrigger} {
		for _, c := range d.ByType(typ) {
			switch c.Kind {
			case Added:
				fmt.Fprintf(&b, "+ %s %s\n", c.Type, c.Name)
			case Removed:
				fmt.Fprintf(&b, "- %s %s\n", c.Type, c.Name)
			case Modified:
				fmt.Fprintf(&b, "~ %s %s\n", c.Type, c.Name)
				for _, det := range c.Details {
					fmt.Fprintf(&b, "    %s\n", det.String())
				}
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func orUnnamed(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}
