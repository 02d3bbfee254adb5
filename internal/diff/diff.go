package diff

import (
	"sort"
	"strings"

	"schemashift/internal/schema"
)

// ObjectType identifies the kind of database object a change applies to.
type ObjectType string

const (
	ObjectTable     ObjectType = "table"
	ObjectView      ObjectType = "view"
	ObjectProcedure ObjectType = "procedure"
	ObjectFunction  ObjectType = "function"
	ObjectTrigger   ObjectType = "trigger"
)

// ChangeKind classifies an object-level change.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// ObjectChange is one object-level difference between two schemas. For
// tables and triggers the old/new snapshots are carried along so that
// downstream consumers can synthesize DDL without re-reading the schemas.
type ObjectChange struct {
	Type          ObjectType
	Name          string
	Kind          ChangeKind
	OldDefinition string
	NewDefinition string
	Details       []ChangeDetail

	OldTable   *schema.TableInfo
	NewTable   *schema.TableInfo
	OldTrigger *schema.TriggerInfo
	NewTrigger *schema.TriggerInfo
}

// SchemaDiff is the full comparison result between a source and a target
// snapshot. Changes are ordered deterministically: tables, views,
// procedures, functions, triggers, each sorted by case-folded name.
type SchemaDiff struct {
	Source  string
	Target  string
	Changes []ObjectChange
}

// HasChanges reports whether the diff contains any difference.
func (d SchemaDiff) HasChanges() bool { return len(d.Changes) > 0 }

// ByType returns the changes of one object type, in diff order.
func (d SchemaDiff) ByType(t ObjectType) []ObjectChange {
	var out []ObjectChange
	for _, c := range d.Changes {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Compare diffs two snapshots. Comparing a schema against itself, or any two
// structurally equal schemas, yields an empty diff. Output order does not
// depend on input slice order.
func Compare(old, new *schema.DatabaseSchema) SchemaDiff {
	d := SchemaDiff{Source: old.Name, Target: new.Name}
	d.Changes = append(d.Changes, compareTables(old.Tables, new.Tables)...)
	d.Changes = append(d.Changes, compareViews(old.Views, new.Views)...)
	d.Changes = append(d.Changes, compareProcedures(old.Procedures, new.Procedures)...)
	d.Changes = append(d.Changes, compareFunctions(old.Functions, new.Functions)...)
	d.Changes = append(d.Changes, compareTriggers(old.Triggers, new.Triggers)...)
	return d
}

func compareTables(old, new []schema.TableInfo) []ObjectChange {
	oldByKey := make(map[string]schema.TableInfo, len(old))
	for _, t := range old {
		oldByKey[t.Key()] = t
	}
	newByKey := make(map[string]schema.TableInfo, len(new))
	for _, t := range new {
		newByKey[t.Key()] = t
	}

	var out []ObjectChange
	for _, key := range sortedKeys(oldByKey, newByKey) {
		oldTbl, inOld := oldByKey[key]
		newTbl, inNew := newByKey[key]
		switch {
		case inOld && !inNew:
			t := oldTbl
			out = append(out, ObjectChange{Type: ObjectTable, Name: t.QualifiedName(), Kind: Removed, OldTable: &t})
		case !inOld && inNew:
			t := newTbl
			out = append(out, ObjectChange{Type: ObjectTable, Name: t.QualifiedName(), Kind: Added, NewTable: &t})
		default:
			details := compareTable(oldTbl, newTbl)
			if len(details) > 0 {
				o, n := oldTbl, newTbl
				out = append(out, ObjectChange{
					Type:     ObjectTable,
					Name:     n.QualifiedName(),
					Kind:     Modified,
					Details:  details,
					OldTable: &o,
					NewTable: &n,
				})
			}
		}
	}
	return out
}

func compareTable(old, new schema.TableInfo) []ChangeDetail {
	var details []ChangeDetail

	oldCols := make(map[string]schema.ColumnInfo, len(old.Columns))
	for _, c := range old.Columns {
		oldCols[strings.ToLower(c.Name)] = c
	}
	newCols := make(map[string]schema.ColumnInfo, len(new.Columns))
	for _, c := range new.Columns {
		newCols[strings.ToLower(c.Name)] = c
	}

	for _, key := range sortedKeys(oldCols, newCols) {
		oldCol, inOld := oldCols[key]
		newCol, inNew := newCols[key]
		switch {
		case inOld && !inNew:
			details = append(details, ColumnRemoved{Column: oldCol})
		case !inOld && inNew:
			details = append(details, ColumnAdded{Column: newCol})
		default:
			details = append(details, compareColumn(oldCol, newCol)...)
		}
	}

	if !equalStringSlicesFold(old.PrimaryKey, new.PrimaryKey) {
		details = append(details, PrimaryKeyChanged{
			Old: append([]string{}, old.PrimaryKey...),
			New: append([]string{}, new.PrimaryKey...),
		})
	}

	oldIdx := make(map[string]schema.IndexInfo, len(old.Indexes))
	for _, idx := range old.Indexes {
		oldIdx[strings.ToLower(idx.Name)] = idx
	}
	newIdx := make(map[string]schema.IndexInfo, len(new.Indexes))
	for _, idx := range new.Indexes {
		newIdx[strings.ToLower(idx.Name)] = idx
	}
	for _, key := range sortedKeys(oldIdx, newIdx) {
		o, inOld := oldIdx[key]
		n, inNew := newIdx[key]
		switch {
		case inOld && !inNew:
			details = append(details, IndexRemoved{Index: o})
		case !inOld && inNew:
			details = append(details, IndexAdded{Index: n})
		case !indexesEqual(o, n):
			// a changed index is dropped and recreated
			details = append(details, IndexRemoved{Index: o}, IndexAdded{Index: n})
		}
	}

	oldFKs := make(map[string]schema.ForeignKeyInfo, len(old.ForeignKeys))
	for _, fk := range old.ForeignKeys {
		oldFKs[strings.ToLower(fk.Name)] = fk
	}
	newFKs := make(map[string]schema.ForeignKeyInfo, len(new.ForeignKeys))
	for _, fk := range new.ForeignKeys {
		newFKs[strings.ToLower(fk.Name)] = fk
	}
	for _, key := range sortedKeys(oldFKs, newFKs) {
		o, inOld := oldFKs[key]
		n, inNew := newFKs[key]
		switch {
		case inOld && !inNew:
			details = append(details, ForeignKeyRemoved{ForeignKey: o})
		case !inOld && inNew:
			details = append(details, ForeignKeyAdded{ForeignKey: n})
		case !foreignKeysEqual(o, n):
			details = append(details, ForeignKeyRemoved{ForeignKey: o}, ForeignKeyAdded{ForeignKey: n})
		}
	}

	return details
}

func compareColumn(old, new schema.ColumnInfo) []ChangeDetail {
	var details []ChangeDetail
	if !typesEqual(old, new) {
		details = append(details, TypeChanged{Column: new.Name, Old: old, New: new})
	}
	if old.Nullable != new.Nullable {
		details = append(details, NullabilityChanged{Column: new.Name, OldNullable: old.Nullable, NewNullable: new.Nullable})
	}
	if old.IsIdentity != new.IsIdentity {
		details = append(details, IdentityChanged{Column: new.Name, OldIdentity: old.IsIdentity, NewIdentity: new.IsIdentity})
	}
	if normalizeDefault(old.Default) != normalizeDefault(new.Default) {
		details = append(details, DefaultChanged{Column: new.Name, Old: normalizeDefault(old.Default), New: normalizeDefault(new.Default)})
	}
	return details
}

func typesEqual(a, b schema.ColumnInfo) bool {
	if a.RawType != "" && b.RawType != "" {
		return strings.EqualFold(strings.TrimSpace(a.RawType), strings.TrimSpace(b.RawType))
	}
	return a.Type == b.Type &&
		a.MaxLength == b.MaxLength &&
		a.Precision == b.Precision &&
		a.Scale == b.Scale
}

func indexesEqual(a, b schema.IndexInfo) bool {
	return a.Unique == b.Unique && equalStringSlicesFold(a.Columns, b.Columns)
}

func foreignKeysEqual(a, b schema.ForeignKeyInfo) bool {
	return equalStringSlicesFold(a.Columns, b.Columns) &&
		strings.EqualFold(a.RefTable, b.RefTable) &&
		equalStringSlicesFold(a.RefColumns, b.RefColumns) &&
		strings.EqualFold(a.OnUpdate, b.OnUpdate) &&
		strings.EqualFold(a.OnDelete, b.OnDelete)
}

func compareViews(old, new []schema.ViewInfo) []ObjectChange {
	oldByKey := make(map[string]schema.ViewInfo, len(old))
	for _, v := range old {
		oldByKey[v.Key()] = v
	}
	newByKey := make(map[string]schema.ViewInfo, len(new))
	for _, v := range new {
		newByKey[v.Key()] = v
	}

	var out []ObjectChange
	for _, key := range sortedKeys(oldByKey, newByKey) {
		o, inOld := oldByKey[key]
		n, inNew := newByKey[key]
		switch {
		case inOld && !inNew:
			out = append(out, ObjectChange{Type: ObjectView, Name: o.QualifiedName(), Kind: Removed, OldDefinition: o.Definition})
		case !inOld && inNew:
			out = append(out, ObjectChange{Type: ObjectView, Name: n.QualifiedName(), Kind: Added, NewDefinition: n.Definition})
		case !definitionsEqual(o.Definition, n.Definition):
			out = append(out, ObjectChange{
				Type: ObjectView, Name: n.QualifiedName(), Kind: Modified,
				OldDefinition: o.Definition, NewDefinition: n.Definition,
				Details: []ChangeDetail{DefinitionChanged{}},
			})
		}
	}
	return out
}

func compareProcedures(old, new []schema.ProcedureInfo) []ObjectChange {
	oldByKey := make(map[string]schema.ProcedureInfo, len(old))
	for _, p := range old {
		oldByKey[p.Key()] = p
	}
	newByKey := make(map[string]schema.ProcedureInfo, len(new))
	for _, p := range new {
		newByKey[p.Key()] = p
	}

	var out []ObjectChange
	for _, key := range sortedKeys(oldByKey, newByKey) {
		o, inOld := oldByKey[key]
		n, inNew := newByKey[key]
		switch {
		case inOld && !inNew:
			out = append(out, ObjectChange{Type: ObjectProcedure, Name: o.QualifiedName(), Kind: Removed, OldDefinition: o.Definition})
		case !inOld && inNew:
			out = append(out, ObjectChange{Type: ObjectProcedure, Name: n.QualifiedName(), Kind: Added, NewDefinition: n.Definition})
		default:
			details := compareParameters(o.Parameters, n.Parameters)
			if !definitionsEqual(o.Definition, n.Definition) {
				details = append(details, DefinitionChanged{})
			}
			if len(details) > 0 {
				out = append(out, ObjectChange{
					Type: ObjectProcedure, Name: n.QualifiedName(), Kind: Modified,
					OldDefinition: o.Definition, NewDefinition: n.Definition,
					Details: details,
				})
			}
		}
	}
	return out
}

func compareFunctions(old, new []schema.FunctionInfo) []ObjectChange {
	oldByKey := make(map[string]schema.FunctionInfo, len(old))
	for _, f := range old {
		oldByKey[f.Key()] = f
	}
	newByKey := make(map[string]schema.FunctionInfo, len(new))
	for _, f := range new {
		newByKey[f.Key()] = f
	}

	var out []ObjectChange
	for _, key := range sortedKeys(oldByKey, newByKey) {
		o, inOld := oldByKey[key]
		n, inNew := newByKey[key]
		switch {
		case inOld && !inNew:
			out = append(out, ObjectChange{Type: ObjectFunction, Name: o.QualifiedName(), Kind: Removed, OldDefinition: o.Definition})
		case !inOld && inNew:
			out = append(out, ObjectChange{Type: ObjectFunction, Name: n.QualifiedName(), Kind: Added, NewDefinition: n.Definition})
		default:
			details := compareParameters(o.Parameters, n.Parameters)
			if !definitionsEqual(o.Definition, n.Definition) || !strings.EqualFold(o.ReturnType, n.ReturnType) {
				details = append(details, DefinitionChanged{})
			}
			if len(details) > 0 {
				out = append(out, ObjectChange{
					Type: ObjectFunction, Name: n.QualifiedName(), Kind: Modified,
					OldDefinition: o.Definition, NewDefinition: n.Definition,
					Details: details,
				})
			}
		}
	}
	return out
}

func compareTriggers(old, new []schema.TriggerInfo) []ObjectChange {
	oldByKey := make(map[string]schema.TriggerInfo, len(old))
	for _, tr := range old {
		oldByKey[tr.Key()] = tr
	}
	newByKey := make(map[string]schema.TriggerInfo, len(new))
	for _, tr := range new {
		newByKey[tr.Key()] = tr
	}

	var out []ObjectChange
	for _, key := range sortedKeys(oldByKey, newByKey) {
		o, inOld := oldByKey[key]
		n, inNew := newByKey[key]
		switch {
		case inOld && !inNew:
			tr := o
			out = append(out, ObjectChange{Type: ObjectTrigger, Name: tr.QualifiedName(), Kind: Removed, OldDefinition: tr.Definition, OldTrigger: &tr})
		case !inOld && inNew:
			tr := n
			out = append(out, ObjectChange{Type: ObjectTrigger, Name: tr.QualifiedName(), Kind: Added, NewDefinition: tr.Definition, NewTrigger: &tr})
		case !definitionsEqual(o.Definition, n.Definition) ||
			!strings.EqualFold(o.Table, n.Table) ||
			!strings.EqualFold(o.Timing, n.Timing) ||
			!strings.EqualFold(o.Events, n.Events):
			ot, nt := o, n
			out = append(out, ObjectChange{
				Type: ObjectTrigger, Name: nt.QualifiedName(), Kind: Modified,
				OldDefinition: ot.Definition, NewDefinition: nt.Definition,
				Details:    []ChangeDetail{DefinitionChanged{}},
				OldTrigger: &ot, NewTrigger: &nt,
			})
		}
	}
	return out
}

func compareParameters(old, new []schema.ParameterInfo) []ChangeDetail {
	oldByName := make(map[string]schema.ParameterInfo, len(old))
	for _, p := range old {
		oldByName[strings.ToLower(p.Name)] = p
	}
	newByName := make(map[string]schema.ParameterInfo, len(new))
	for _, p := range new {
		newByName[strings.ToLower(p.Name)] = p
	}

	var details []ChangeDetail
	for _, key := range sortedKeys(oldByName, newByName) {
		o, inOld := oldByName[key]
		n, inNew := newByName[key]
		switch {
		case inOld && !inNew:
			details = append(details, ParameterRemoved{Name: o.Name})
		case !inOld && inNew:
			details = append(details, ParameterAdded{Name: n.Name})
		}
	}
	return details
}

// definitionsEqual compares definition bodies ignoring leading/trailing
// whitespace and line ending style.
func definitionsEqual(a, b string) bool {
	return normalizeDefinition(a) == normalizeDefinition(b)
}

func normalizeDefinition(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

func normalizeDefault(val string) string {
	return strings.TrimSpace(val)
}

func sortedKeys[V any](maps ...map[string]V) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, m := range maps {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func equalStringSlicesFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
