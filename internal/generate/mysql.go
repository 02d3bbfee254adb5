package generate

import (
	"fmt"
	"strings"

	"schemashift/internal/schema"
)

type mysqlRenderer struct{}

var mysqlReservedWords = map[string]bool{
	"add": true, "all": true, "alter": true, "and": true, "as": true,
	"asc": true, "before": true, "between": true, "by": true, "case": true,
	"change": true, "check": true, "column": true, "condition": true,
	"constraint": true, "create": true, "cross": true, "database": true,
	"default": true, "delete": true, "desc": true, "distinct": true,
	"drop": true, "else": true, "exists": true, "foreign": true, "from": true,
	"group": true, "having": true, "if": true, "in": true, "index": true,
	"inner": true, "insert": true, "interval": true, "into": true, "is": true,
	"join": true, "key": true, "left": true, "like": true, "limit": true,
	"not": true, "null": true, "on": true, "or": true, "order": true,
	"outer": true, "primary": true, "range": true, "references": true,
	"right": true, "select": true, "set": true, "table": true, "then": true,
	"to": true, "trigger": true, "union": true, "unique": true, "update": true,
	"using": true, "values": true, "when": true, "where": true, "while": true,
	"with": true,
}

func mysqlIdent(name string) string {
	if mysqlReservedWords[strings.ToLower(name)] || !isPlainIdent(name, false) {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return name
}

func (mysqlRenderer) table(t schema.TableInfo) string {
	return quoteQualified(t.QualifiedName(), mysqlIdent)
}

func (r mysqlRenderer) CreateTable(t schema.TableInfo) string {
	return createTable(t, mysqlIdent)
}

func (r mysqlRenderer) DropTable(t schema.TableInfo) string {
	return "DROP TABLE " + r.table(t)
}

func (r mysqlRenderer) AddColumn(t schema.TableInfo, c schema.ColumnInfo) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", r.table(t), columnSpec(c, mysqlIdent))
}

func (r mysqlRenderer) DropColumn(t schema.TableInfo, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", r.table(t), mysqlIdent(column))
}

// MODIFY restates the full column definition, so nullability rides along.
func (r mysqlRenderer) AlterColumnType(t schema.TableInfo, old, new schema.ColumnInfo) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s %s %s",
		r.table(t), mysqlIdent(new.Name), new.TypeSpec(), nullClause(new.Nullable))
}

func (r mysqlRenderer) AlterNullability(t schema.TableInfo, c schema.ColumnInfo, nullable bool) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s %s %s",
		r.table(t), mysqlIdent(c.Name), c.TypeSpec(), nullClause(nullable))
}

func (r mysqlRenderer) AlterDefault(t schema.TableInfo, c schema.ColumnInfo, def string) string {
	if def == "" {
		return fmt.Sprintf("ALTER TABLE %s ALTER %s DROP DEFAULT", r.table(t), mysqlIdent(c.Name))
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER %s SET DEFAULT %s", r.table(t), mysqlIdent(c.Name), def)
}

func (r mysqlRenderer) AlterIdentity(t schema.TableInfo, c schema.ColumnInfo, identity bool) string {
	suffix := ""
	if identity {
		suffix = " AUTO_INCREMENT"
	}
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s %s %s%s",
		r.table(t), mysqlIdent(c.Name), c.TypeSpec(), nullClause(c.Nullable), suffix)
}

func (r mysqlRenderer) AddPrimaryKey(t schema.TableInfo, columns []string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", r.table(t), joinQuoted(columns, mysqlIdent))
}

func (r mysqlRenderer) DropPrimaryKey(t schema.TableInfo) string {
	return fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", r.table(t))
}

func (r mysqlRenderer) CreateIndex(t schema.TableInfo, idx schema.IndexInfo) string {
	return createIndex(t, idx, mysqlIdent)
}

func (r mysqlRenderer) DropIndex(t schema.TableInfo, idx schema.IndexInfo) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", mysqlIdent(idx.Name), r.table(t))
}

func (r mysqlRenderer) AddForeignKey(t schema.TableInfo, fk schema.ForeignKeyInfo) string {
	return addForeignKey(t, fk, mysqlIdent)
}

func (r mysqlRenderer) DropForeignKey(t schema.TableInfo, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", r.table(t), mysqlIdent(name))
}

func (mysqlRenderer) DropView(name string) string {
	return "DROP VIEW " + quoteQualified(name, mysqlIdent)
}

func (mysqlRenderer) DropProcedure(name string) string {
	return "DROP PROCEDURE " + quoteQualified(name, mysqlIdent)
}

func (mysqlRenderer) DropFunction(name string) string {
	return "DROP FUNCTION " + quoteQualified(name, mysqlIdent)
}

func (mysqlRenderer) DropTrigger(tr schema.TriggerInfo) string {
	return "DROP TRIGGER " + quoteQualified(schema.QualifiedName(tr.Schema, tr.Name), mysqlIdent)
}

// MySQL DDL commits implicitly, so steps run in autocommit mode.
func (mysqlRenderer) Transactional() bool { return false }
