package schema

import "strings"

// DatabaseSchema is a point-in-time snapshot of a database's structure, as
// produced by an external extractor. It is treated as read-only input: the
// engine never mutates a snapshot after it has been handed over.
type DatabaseSchema struct {
	Name       string          `json:"name"`
	Tables     []TableInfo     `json:"tables"`
	Views      []ViewInfo      `json:"views,omitempty"`
	Procedures []ProcedureInfo `json:"procedures,omitempty"`
	Functions  []FunctionInfo  `json:"functions,omitempty"`
	Triggers   []TriggerInfo   `json:"triggers,omitempty"`
}

// TableInfo describes a single table with its columns, keys and indexes.
type TableInfo struct {
	Name        string           `json:"name"`
	Schema      string           `json:"schema,omitempty"`
	Columns     []ColumnInfo     `json:"columns"`
	PrimaryKey  []string         `json:"primaryKey,omitempty"`
	ForeignKeys []ForeignKeyInfo `json:"foreignKeys,omitempty"`
	Indexes     []IndexInfo      `json:"indexes,omitempty"`
}

// ColumnInfo describes a table column.
type ColumnInfo struct {
	Name        string   `json:"name"`
	RawType     string   `json:"rawType"` // full type as extracted, e.g. "nvarchar(255)"
	Type        DataType `json:"type"`
	Nullable    bool     `json:"nullable"`
	IsPrimary   bool     `json:"isPrimary,omitempty"`
	IsIdentity  bool     `json:"isIdentity,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty"` // 0 = unspecified, -1 = MAX
	Precision   int      `json:"precision,omitempty"`
	Scale       int      `json:"scale,omitempty"`
	Default     string   `json:"default,omitempty"`
	OrdinalPos  int      `json:"ordinalPos"`
}

// IndexInfo describes an index (may span multiple columns).
type IndexInfo struct {
	Name    string   `json:"name"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`
}

// ForeignKeyInfo describes a foreign key constraint.
type ForeignKeyInfo struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	RefTable   string   `json:"refTable"`
	RefColumns []string `json:"refColumns"`
	OnUpdate   string   `json:"onUpdate,omitempty"` // CASCADE, SET NULL, ...
	OnDelete   string   `json:"onDelete,omitempty"`
}

// ViewInfo describes a view by its full CREATE definition.
type ViewInfo struct {
	Name       string `json:"name"`
	Schema     string `json:"schema,omitempty"`
	Definition string `json:"definition"`
}

// ParameterInfo describes a routine parameter.
type ParameterInfo struct {
	Name    string `json:"name"`
	RawType string `json:"rawType"`
	Ordinal int    `json:"ordinal"`
}

// ProcedureInfo describes a stored procedure.
type ProcedureInfo struct {
	Name       string          `json:"name"`
	Schema     string          `json:"schema,omitempty"`
	Parameters []ParameterInfo `json:"parameters,omitempty"`
	Definition string          `json:"definition"`
}

// FunctionInfo describes a user-defined function.
type FunctionInfo struct {
	Name       string          `json:"name"`
	Schema     string          `json:"schema,omitempty"`
	Parameters []ParameterInfo `json:"parameters,omitempty"`
	ReturnType string          `json:"returnType,omitempty"`
	Definition string          `json:"definition"`
}

// TriggerInfo describes a trigger attached to a table.
type TriggerInfo struct {
	Name       string `json:"name"`
	Schema     string `json:"schema,omitempty"`
	Table      string `json:"table"`
	Timing     string `json:"timing,omitempty"` // BEFORE, AFTER, INSTEAD OF
	Events     string `json:"events,omitempty"` // INSERT, UPDATE, DELETE (comma separated)
	Definition string `json:"definition"`
}

// QualifiedName joins an optional schema and an object name into the display
// form used throughout diffs and migration steps.
func QualifiedName(schemaName, name string) string {
	if schemaName == "" {
		return name
	}
	return schemaName + "." + name
}

// FoldName returns the case-folded comparison key for an object name.
// Object identity for diffing is the case-folded qualified name.
func FoldName(schemaName, name string) string {
	return strings.ToLower(QualifiedName(schemaName, name))
}

func (t TableInfo) QualifiedName() string { return QualifiedName(t.Schema, t.Name) }
func (t TableInfo) Key() string           { return FoldName(t.Schema, t.Name) }

func (v ViewInfo) QualifiedName() string { return QualifiedName(v.Schema, v.Name) }
func (v ViewInfo) Key() string           { return FoldName(v.Schema, v.Name) }

func (p ProcedureInfo) QualifiedName() string { return QualifiedName(p.Schema, p.Name) }
func (p ProcedureInfo) Key() string           { return FoldName(p.Schema, p.Name) }

func (f FunctionInfo) QualifiedName() string { return QualifiedName(f.Schema, f.Name) }
func (f FunctionInfo) Key() string           { return FoldName(f.Schema, f.Name) }

func (tr TriggerInfo) QualifiedName() string { return QualifiedName(tr.Schema, tr.Name) }
func (tr TriggerInfo) Key() string           { return FoldName(tr.Schema, tr.Name) }

// Column returns the column with the given name, matched case-insensitively.
func (t TableInfo) Column(name string) (ColumnInfo, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// Index returns the index with the given name, matched case-insensitively.
func (t TableInfo) Index(name string) (IndexInfo, bool) {
	for _, idx := range t.Indexes {
		if strings.EqualFold(idx.Name, name) {
			return idx, true
		}
	}
	return IndexInfo{}, false
}

// ForeignKey returns the foreign key with the given name, matched
// case-insensitively.
func (t TableInfo) ForeignKey(name string) (ForeignKeyInfo, bool) {
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.Name, name) {
			return fk, true
		}
	}
	return ForeignKeyInfo{}, false
}

// TypeSpec is the canonical text form of a column's type: the raw type when
// the extractor supplied one, otherwise the normalized type name.
func (c ColumnInfo) TypeSpec() string {
	if c.RawType != "" {
		return c.RawType
	}
	return string(c.Type)
}
