package diff

import (
	"fmt"
	"strings"

	"schemashift/internal/schema"
)

// ChangeDetail is one concrete difference inside a modified object. The set
// of implementations is closed; consumers switch on the concrete type.
type ChangeDetail interface {
	String() string
	changeDetail()
}

// ColumnAdded marks a column present only in the target table.
type ColumnAdded struct {
	Column schema.ColumnInfo
}

// ColumnRemoved marks a column present only in the source table.
type ColumnRemoved struct {
	Column schema.ColumnInfo
}

// TypeChanged marks a column whose data type differs between the two sides.
type TypeChanged struct {
	Column string
	Old    schema.ColumnInfo
	New    schema.ColumnInfo
}

// NullabilityChanged marks a column that switched between NULL and NOT NULL.
type NullabilityChanged struct {
	Column      string
	OldNullable bool
	NewNullable bool
}

// IdentityChanged marks a column that gained or lost its identity property.
type IdentityChanged struct {
	Column      string
	OldIdentity bool
	NewIdentity bool
}

// DefaultChanged marks a column whose default expression differs.
type DefaultChanged struct {
	Column string
	Old    string
	New    string
}

// PrimaryKeyChanged marks a table whose primary key column list differs.
type PrimaryKeyChanged struct {
	Old []string
	New []string
}

// ParameterAdded marks a routine parameter present only in the target.
type ParameterAdded struct {
	Name string
}

// ParameterRemoved marks a routine parameter present only in the source.
type ParameterRemoved struct {
	Name string
}

// IndexAdded marks an index present only in the target table.
type IndexAdded struct {
	Index schema.IndexInfo
}

// IndexRemoved marks an index present only in the source table.
type IndexRemoved struct {
	Index schema.IndexInfo
}

// ForeignKeyAdded marks a foreign key present only in the target table.
type ForeignKeyAdded struct {
	ForeignKey schema.ForeignKeyInfo
}

// ForeignKeyRemoved marks a foreign key present only in the source table.
type ForeignKeyRemoved struct {
	ForeignKey schema.ForeignKeyInfo
}

// DefinitionChanged marks a view, routine or trigger whose body text differs.
type DefinitionChanged struct{}

func (ColumnAdded) changeDetail()        {}
func (ColumnRemoved) changeDetail()      {}
func (TypeChanged) changeDetail()        {}
func (NullabilityChanged) changeDetail() {}
func (IdentityChanged) changeDetail()    {}
func (DefaultChanged) changeDetail()     {}
func (PrimaryKeyChanged) changeDetail()  {}
func (ParameterAdded) changeDetail()     {}
func (ParameterRemoved) changeDetail()   {}
func (IndexAdded) changeDetail()         {}
func (IndexRemoved) changeDetail()       {}
func (ForeignKeyAdded) changeDetail()    {}
func (ForeignKeyRemoved) changeDetail()  {}
func (DefinitionChanged) changeDetail()  {}

func (d ColumnAdded) String() string {
	return fmt.Sprintf("column %s %s added", d.Column.Name, d.Column.TypeSpec())
}

func (d ColumnRemoved) String() string {
	return fmt.Sprintf("column %s removed", d.Column.Name)
}

func (d TypeChanged) String() string {
	return fmt.Sprintf("column %s type changed: %s -> %s", d.Column, d.Old.TypeSpec(), d.New.TypeSpec())
}

func (d NullabilityChanged) String() string {
	return fmt.Sprintf("column %s nullability changed: %s -> %s", d.Column, nullability(d.OldNullable), nullability(d.NewNullable))
}

func (d IdentityChanged) String() string {
	if d.NewIdentity {
		return fmt.Sprintf("column %s became identity", d.Column)
	}
	return fmt.Sprintf("column %s no longer identity", d.Column)
}

func (d DefaultChanged) String() string {
	return fmt.Sprintf("column %s default changed: %s -> %s", d.Column, orNone(d.Old), orNone(d.New))
}

func (d PrimaryKeyChanged) String() string {
	return fmt.Sprintf("primary key changed: (%s) -> (%s)", strings.Join(d.Old, ", "), strings.Join(d.New, ", "))
}

func (d ParameterAdded) String() string   { return fmt.Sprintf("parameter %s added", d.Name) }
func (d ParameterRemoved) String() string { return fmt.Sprintf("parameter %s removed", d.Name) }

func (d IndexAdded) String() string {
	return fmt.Sprintf("index %s added on (%s)", d.Index.Name, strings.Join(d.Index.Columns, ", "))
}

func (d IndexRemoved) String() string {
	return fmt.Sprintf("index %s removed", d.Index.Name)
}

func (d ForeignKeyAdded) String() string {
	return fmt.Sprintf("foreign key %s added referencing %s", d.ForeignKey.Name, d.ForeignKey.RefTable)
}

func (d ForeignKeyRemoved) String() string {
	return fmt.Sprintf("foreign key %s removed", d.ForeignKey.Name)
}

func (DefinitionChanged) String() string { return "definition changed" }

func nullability(nullable bool) string {
	if nullable {
		return "NULL"
	}
	return "NOT NULL"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
