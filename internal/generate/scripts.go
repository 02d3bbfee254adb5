package generate

import (
	"fmt"
	"strings"
)

// ForwardScript renders the migration as a single SQL text with header
// comments, steps in ascending order.
func ForwardScript(m *Migration) string {
	var b strings.Builder
	writeHeader(&b, m, "forward")
	for _, s := range m.Steps {
		fmt.Fprintf(&b, "-- step %d: %s\n%s;\n\n", s.Order, s.Description, s.ForwardSQL)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// RollbackScript renders the rollback statements in reverse step order.
// Irreversible steps appear as comments so the gap is visible in review.
func RollbackScript(m *Migration) string {
	var b strings.Builder
	writeHeader(&b, m, "rollback")
	for i := len(m.Steps) - 1; i >= 0; i-- {
		s := m.Steps[i]
		if s.RollbackSQL == nil {
			fmt.Fprintf(&b, "-- step %d: %s: NO ROLLBACK AVAILABLE, manual intervention required\n\n", s.Order, s.Description)
			continue
		}
		fmt.Fprintf(&b, "-- step %d: rollback of %s\n%s;\n\n", s.Order, s.Description, *s.RollbackSQL)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeHeader(b *strings.Builder, m *Migration, direction string) {
	fmt.Fprintf(b, "-- migration: %s\n", m.Name)
	fmt.Fprintf(b, "-- version: %s\n", m.Version)
	fmt.Fprintf(b, "-- dialect: %s\n", m.Dialect)
	fmt.Fprintf(b, "-- checksum: %s\n", m.Checksum)
	fmt.Fprintf(b, "-- direction: %s\n\n", direction)
}
