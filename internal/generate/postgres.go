package generate

import (
	"fmt"
	"strings"

	"schemashift/internal/schema"
)

type postgresRenderer struct{}

var pgReservedWords = map[string]bool{
	"all": true, "and": true, "any": true, "array": true, "as": true,
	"asc": true, "both": true, "case": true, "cast": true, "check": true,
	"column": true, "constraint": true, "create": true, "current_date": true,
	"current_time": true, "current_timestamp": true, "current_user": true,
	"default": true, "desc": true, "distinct": true, "do": true, "else": true,
	"end": true, "false": true, "for": true, "foreign": true, "from": true,
	"grant": true, "group": true, "having": true, "in": true, "initially": true,
	"intersect": true, "into": true, "leading": true, "limit": true,
	"localtime": true, "localtimestamp": true, "not": true, "null": true,
	"offset": true, "on": true, "only": true, "or": true, "order": true,
	"placing": true, "primary": true, "references": true, "returning": true,
	"select": true, "session_user": true, "some": true, "symmetric": true,
	"table": true, "then": true, "to": true, "trailing": true, "true": true,
	"union": true, "unique": true, "user": true, "using": true, "when": true,
	"where": true, "window": true, "with": true,
}

// pgIdent quotes reserved words and any name that would not survive
// PostgreSQL's lowercase folding unquoted.
func pgIdent(name string) string {
	if pgReservedWords[strings.ToLower(name)] || !isPlainIdent(name, true) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

func (postgresRenderer) table(t schema.TableInfo) string {
	return quoteQualified(t.QualifiedName(), pgIdent)
}

func (r postgresRenderer) CreateTable(t schema.TableInfo) string {
	return createTable(t, pgIdent)
}

func (r postgresRenderer) DropTable(t schema.TableInfo) string {
	return "DROP TABLE " + r.table(t)
}

func (r postgresRenderer) AddColumn(t schema.TableInfo, c schema.ColumnInfo) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", r.table(t), columnSpec(c, pgIdent))
}

func (r postgresRenderer) DropColumn(t schema.TableInfo, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", r.table(t), pgIdent(column))
}

func (r postgresRenderer) AlterColumnType(t schema.TableInfo, old, new schema.ColumnInfo) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", r.table(t), pgIdent(new.Name), new.TypeSpec())
}

func (r postgresRenderer) AlterNullability(t schema.TableInfo, c schema.ColumnInfo, nullable bool) string {
	verb := "SET"
	if nullable {
		verb = "DROP"
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s NOT NULL", r.table(t), pgIdent(c.Name), verb)
}

func (r postgresRenderer) AlterDefault(t schema.TableInfo, c schema.ColumnInfo, def string) string {
	if def == "" {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", r.table(t), pgIdent(c.Name))
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", r.table(t), pgIdent(c.Name), def)
}

func (r postgresRenderer) AlterIdentity(t schema.TableInfo, c schema.ColumnInfo, identity bool) string {
	if identity {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s ADD GENERATED BY DEFAULT AS IDENTITY", r.table(t), pgIdent(c.Name))
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP IDENTITY IF EXISTS", r.table(t), pgIdent(c.Name))
}

func (r postgresRenderer) AddPrimaryKey(t schema.TableInfo, columns []string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", r.table(t), joinQuoted(columns, pgIdent))
}

func (r postgresRenderer) DropPrimaryKey(t schema.TableInfo) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", r.table(t), pgIdent(t.Name+"_pkey"))
}

func (r postgresRenderer) CreateIndex(t schema.TableInfo, idx schema.IndexInfo) string {
	return createIndex(t, idx, pgIdent)
}

func (r postgresRenderer) DropIndex(t schema.TableInfo, idx schema.IndexInfo) string {
	name := idx.Name
	if t.Schema != "" {
		return "DROP INDEX " + pgIdent(t.Schema) + "." + pgIdent(name)
	}
	return "DROP INDEX " + pgIdent(name)
}

func (r postgresRenderer) AddForeignKey(t schema.TableInfo, fk schema.ForeignKeyInfo) string {
	return addForeignKey(t, fk, pgIdent)
}

func (r postgresRenderer) DropForeignKey(t schema.TableInfo, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", r.table(t), pgIdent(name))
}

func (postgresRenderer) DropView(name string) string {
	return "DROP VIEW " + quoteQualified(name, pgIdent)
}

func (postgresRenderer) DropProcedure(name string) string {
	return "DROP PROCEDURE " + quoteQualified(name, pgIdent)
}

func (postgresRenderer) DropFunction(name string) string {
	return "DROP FUNCTION " + quoteQualified(name, pgIdent)
}

func (postgresRenderer) DropTrigger(tr schema.TriggerInfo) string {
	return fmt.Sprintf("DROP TRIGGER %s ON %s", pgIdent(tr.Name), quoteQualified(schema.QualifiedName(tr.Schema, tr.Table), pgIdent))
}

func (postgresRenderer) Transactional() bool { return true }
