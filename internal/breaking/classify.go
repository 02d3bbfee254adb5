package breaking

import (
	"fmt"

	"schemashift/internal/diff"
)

// Severity grades how risky a schema change is for existing consumers.
type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
	Low      Severity = "low"
)

// BreakingChange is the classification verdict for one object change.
// Absence of a verdict means the change is safe.
type BreakingChange struct {
	ChangeKind   diff.ChangeKind
	Severity     Severity
	ObjectName   string
	Description  string
	DataLossRisk bool
	Remediation  string
}

// Classify evaluates every change in the diff against an ordered rule list,
// first match wins, at most one verdict per change. Added objects are never
// breaking.
func Classify(d diff.SchemaDiff) []BreakingChange {
	var out []BreakingChange
	for _, c := range d.Changes {
		if bc := classifyChange(c); bc != nil {
			out = append(out, *bc)
		}
	}
	return out
}

func classifyChange(c diff.ObjectChange) *BreakingChange {
	switch c.Kind {
	case diff.Added:
		return nil
	case diff.Removed:
		if c.Type == diff.ObjectTable {
			return &BreakingChange{
				ChangeKind:   c.Kind,
				Severity:     Critical,
				ObjectName:   c.Name,
				Description:  fmt.Sprintf("table %s is removed; all rows are lost", c.Name),
				DataLossRisk: true,
				Remediation:  "archive the table's data before applying",
			}
		}
		return &BreakingChange{
			ChangeKind:  c.Kind,
			Severity:    High,
			ObjectName:  c.Name,
			Description: fmt.Sprintf("%s %s is removed; dependent callers will break", c.Type, c.Name),
		}
	}

	// Modified: scan details in rule order.
	for _, det := range c.Details {
		if rem, ok := det.(diff.ColumnRemoved); ok {
			return &BreakingChange{
				ChangeKind:   c.Kind,
				Severity:     Critical,
				ObjectName:   c.Name + "." + rem.Column.Name,
				Description:  fmt.Sprintf("column %s.%s is removed; its data is lost", c.Name, rem.Column.Name),
				DataLossRisk: true,
				Remediation:  "archive the column's data before applying",
			}
		}
	}
	var typeChange *diff.TypeChanged
	narrowing := false
	for _, det := range c.Details {
		if tc, ok := det.(diff.TypeChanged); ok {
			if typeChange == nil {
				typeChange = &tc
			}
			if isNarrowing(tc.Old, tc.New) {
				tc := tc
				typeChange = &tc
				narrowing = true
				break
			}
		}
	}
	if typeChange != nil {
		if narrowing {
			return &BreakingChange{
				ChangeKind:   c.Kind,
				Severity:     High,
				ObjectName:   c.Name + "." + typeChange.Column,
				Description:  fmt.Sprintf("column %s.%s narrows from %s to %s; values may be truncated or overflow", c.Name, typeChange.Column, typeChange.Old.TypeSpec(), typeChange.New.TypeSpec()),
				DataLossRisk: true,
				Remediation:  "verify existing values fit the narrower type before applying",
			}
		}
		return &BreakingChange{
			ChangeKind:  c.Kind,
			Severity:    Low,
			ObjectName:  c.Name + "." + typeChange.Column,
			Description: fmt.Sprintf("column %s.%s widens from %s to %s", c.Name, typeChange.Column, typeChange.Old.TypeSpec(), typeChange.New.TypeSpec()),
			Remediation: "verify value ranges after applying",
		}
	}
	for _, det := range c.Details {
		if nc, ok := det.(diff.NullabilityChanged); ok && nc.OldNullable && !nc.NewNullable {
			return &BreakingChange{
				ChangeKind:  c.Kind,
				Severity:    Medium,
				ObjectName:  c.Name + "." + nc.Column,
				Description: fmt.Sprintf("column %s.%s becomes NOT NULL; inserts omitting it will fail", c.Name, nc.Column),
				Remediation: "backfill existing NULLs before applying",
			}
		}
	}
	for _, det := range c.Details {
		if pr, ok := det.(diff.ParameterRemoved); ok {
			return &BreakingChange{
				ChangeKind:  c.Kind,
				Severity:    High,
				ObjectName:  c.Name,
				Description: fmt.Sprintf("%s %s drops parameter %s; callers passing it will break", c.Type, c.Name, pr.Name),
			}
		}
	}
	return &BreakingChange{
		ChangeKind:  c.Kind,
		Severity:    Low,
		ObjectName:  c.Name,
		Description: fmt.Sprintf("%s %s is modified", c.Type, c.Name),
	}
}

// HasCritical reports whether any verdict is Critical.
func HasCritical(changes []BreakingChange) bool {
	for _, bc := range changes {
		if bc.Severity == Critical {
			return true
		}
	}
	return false
}
