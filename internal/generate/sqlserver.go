package generate

import (
	"fmt"
	"strings"

	"schemashift/internal/schema"
)

type sqlserverRenderer struct{}

var mssqlReservedWords = map[string]bool{
	"add": true, "all": true, "alter": true, "and": true, "any": true,
	"as": true, "asc": true, "backup": true, "begin": true, "between": true,
	"by": true, "case": true, "check": true, "column": true, "constraint": true,
	"create": true, "cross": true, "current": true, "database": true,
	"default": true, "delete": true, "desc": true, "distinct": true,
	"drop": true, "else": true, "end": true, "exec": true, "exists": true,
	"foreign": true, "from": true, "full": true, "function": true,
	"group": true, "having": true, "in": true, "index": true, "inner": true,
	"insert": true, "into": true, "is": true, "join": true, "key": true,
	"left": true, "like": true, "merge": true, "not": true, "null": true,
	"on": true, "or": true, "order": true, "outer": true, "over": true,
	"percent": true, "plan": true, "primary": true, "proc": true,
	"procedure": true, "references": true, "right": true, "rollback": true,
	"select": true, "set": true, "table": true, "then": true, "to": true,
	"top": true, "trigger": true, "union": true, "unique": true,
	"update": true, "user": true, "values": true, "view": true, "when": true,
	"where": true, "while": true, "with": true,
}

// mssqlIdent bracket-quotes reserved words and names with characters invalid
// in an unquoted identifier. Mixed case is fine unquoted.
func mssqlIdent(name string) string {
	if mssqlReservedWords[strings.ToLower(name)] || !isPlainIdent(name, false) {
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	}
	return name
}

func (sqlserverRenderer) table(t schema.TableInfo) string {
	return quoteQualified(t.QualifiedName(), mssqlIdent)
}

func (r sqlserverRenderer) CreateTable(t schema.TableInfo) string {
	return createTable(t, mssqlIdent)
}

func (r sqlserverRenderer) DropTable(t schema.TableInfo) string {
	return "DROP TABLE " + r.table(t)
}

func (r sqlserverRenderer) AddColumn(t schema.TableInfo, c schema.ColumnInfo) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", r.table(t), columnSpec(c, mssqlIdent))
}

func (r sqlserverRenderer) DropColumn(t schema.TableInfo, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", r.table(t), mssqlIdent(column))
}

// AlterColumnType restates nullability: SQL Server resets a column to the
// database default otherwise.
func (r sqlserverRenderer) AlterColumnType(t schema.TableInfo, old, new schema.ColumnInfo) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s %s",
		r.table(t), mssqlIdent(new.Name), new.TypeSpec(), nullClause(new.Nullable))
}

func (r sqlserverRenderer) AlterNullability(t schema.TableInfo, c schema.ColumnInfo, nullable bool) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s %s",
		r.table(t), mssqlIdent(c.Name), c.TypeSpec(), nullClause(nullable))
}

func (r sqlserverRenderer) AlterDefault(t schema.TableInfo, c schema.ColumnInfo, def string) string {
	constraint := mssqlIdent("DF_" + t.Name + "_" + c.Name)
	if def == "" {
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", r.table(t), constraint)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s DEFAULT %s FOR %s",
		r.table(t), constraint, def, mssqlIdent(c.Name))
}

// AlterIdentity has no in-place DDL on SQL Server; toggling identity needs a
// table rebuild, which is outside what a single generated step can express.
func (sqlserverRenderer) AlterIdentity(schema.TableInfo, schema.ColumnInfo, bool) string {
	return ""
}

func (r sqlserverRenderer) AddPrimaryKey(t schema.TableInfo, columns []string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)",
		r.table(t), mssqlIdent("PK_"+t.Name), joinQuoted(columns, mssqlIdent))
}

func (r sqlserverRenderer) DropPrimaryKey(t schema.TableInfo) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", r.table(t), mssqlIdent("PK_"+t.Name))
}

func (r sqlserverRenderer) CreateIndex(t schema.TableInfo, idx schema.IndexInfo) string {
	return createIndex(t, idx, mssqlIdent)
}

func (r sqlserverRenderer) DropIndex(t schema.TableInfo, idx schema.IndexInfo) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", mssqlIdent(idx.Name), r.table(t))
}

func (r sqlserverRenderer) AddForeignKey(t schema.TableInfo, fk schema.ForeignKeyInfo) string {
	return addForeignKey(t, fk, mssqlIdent)
}

func (r sqlserverRenderer) DropForeignKey(t schema.TableInfo, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", r.table(t), mssqlIdent(name))
}

func (sqlserverRenderer) DropView(name string) string {
	return "DROP VIEW " + quoteQualified(name, mssqlIdent)
}

func (sqlserverRenderer) DropProcedure(name string) string {
	return "DROP PROCEDURE " + quoteQualified(name, mssqlIdent)
}

func (sqlserverRenderer) DropFunction(name string) string {
	return "DROP FUNCTION " + quoteQualified(name, mssqlIdent)
}

func (sqlserverRenderer) DropTrigger(tr schema.TriggerInfo) string {
	return "DROP TRIGGER " + quoteQualified(schema.QualifiedName(tr.Schema, tr.Name), mssqlIdent)
}

func (sqlserverRenderer) Transactional() bool { return true }

func nullClause(nullable bool) string {
	if nullable {
		return "NULL"
	}
	return "NOT NULL"
}
