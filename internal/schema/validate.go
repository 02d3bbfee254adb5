package schema

import "fmt"

// ValidationError reports a malformed schema snapshot.
type ValidationError struct {
	Object string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Object == "" {
		return "invalid schema: " + e.Reason
	}
	return fmt.Sprintf("invalid schema: %s: %s", e.Object, e.Reason)
}

// Validate checks a snapshot for structural problems that would make a diff
// meaningless: empty names, tables without columns, duplicate qualified
// names, primary keys or indexes referencing unknown columns.
func (s *DatabaseSchema) Validate() error {
	seen := make(map[string]string, len(s.Tables))
	for _, t := range s.Tables {
		if t.Name == "" {
			return &ValidationError{Reason: "table with empty name"}
		}
		qn := t.QualifiedName()
		if prev, dup := seen[t.Key()]; dup {
			return &ValidationError{Object: qn, Reason: "duplicate table name (also " + prev + ")"}
		}
		seen[t.Key()] = qn

		if len(t.Columns) == 0 {
			return &ValidationError{Object: qn, Reason: "table has no columns"}
		}
		cols := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if c.Name == "" {
				return &ValidationError{Object: qn, Reason: "column with empty name"}
			}
			key := FoldName("", c.Name)
			if cols[key] {
				return &ValidationError{Object: qn + "." + c.Name, Reason: "duplicate column name"}
			}
			cols[key] = true
		}
		for _, pk := range t.PrimaryKey {
			if !cols[FoldName("", pk)] {
				return &ValidationError{Object: qn, Reason: "primary key references unknown column " + pk}
			}
		}
		for _, idx := range t.Indexes {
			if idx.Name == "" {
				return &ValidationError{Object: qn, Reason: "index with empty name"}
			}
			for _, col := range idx.Columns {
				if !cols[FoldName("", col)] {
					return &ValidationError{Object: qn + " index " + idx.Name, Reason: "references unknown column " + col}
				}
			}
		}
		for _, fk := range t.ForeignKeys {
			if fk.Name == "" {
				return &ValidationError{Object: qn, Reason: "foreign key with empty name"}
			}
			for _, col := range fk.Columns {
				if !cols[FoldName("", col)] {
					return &ValidationError{Object: qn + " foreign key " + fk.Name, Reason: "references unknown column " + col}
				}
			}
		}
	}

	named := func(kind, schemaName, name string) error {
		if name == "" {
			return &ValidationError{Reason: kind + " with empty name"}
		}
		key := kind + ":" + FoldName(schemaName, name)
		if prev, dup := seen[key]; dup {
			return &ValidationError{Object: QualifiedName(schemaName, name), Reason: "duplicate " + kind + " name (also " + prev + ")"}
		}
		seen[key] = QualifiedName(schemaName, name)
		return nil
	}
	for _, v := range s.Views {
		if err := named("view", v.Schema, v.Name); err != nil {
			return err
		}
	}
	for _, p := range s.Procedures {
		if err := named("procedure", p.Schema, p.Name); err != nil {
			return err
		}
	}
	for _, f := range s.Functions {
		if err := named("function", f.Schema, f.Name); err != nil {
			return err
		}
	}
	for _, tr := range s.Triggers {
		if err := named("trigger", tr.Schema, tr.Name); err != nil {
			return err
		}
		if tr.Table == "" {
			return &ValidationError{Object: tr.QualifiedName(), Reason: "trigger has no table"}
		}
	}
	return nil
}
