package generate

import (
	"fmt"
	"strings"

	"schemashift/internal/schema"
)

// renderer produces dialect-specific DDL text. Definition-bearing objects
// (views, routines, triggers) are created from their captured definition and
// only their DROP statements go through the renderer.
type renderer interface {
	CreateTable(t schema.TableInfo) string
	DropTable(t schema.TableInfo) string
	AddColumn(t schema.TableInfo, c schema.ColumnInfo) string
	DropColumn(t schema.TableInfo, column string) string
	AlterColumnType(t schema.TableInfo, old, new schema.ColumnInfo) string
	AlterNullability(t schema.TableInfo, c schema.ColumnInfo, nullable bool) string
	AlterDefault(t schema.TableInfo, c schema.ColumnInfo, def string) string
	AlterIdentity(t schema.TableInfo, c schema.ColumnInfo, identity bool) string
	AddPrimaryKey(t schema.TableInfo, columns []string) string
	DropPrimaryKey(t schema.TableInfo) string
	CreateIndex(t schema.TableInfo, idx schema.IndexInfo) string
	DropIndex(t schema.TableInfo, idx schema.IndexInfo) string
	AddForeignKey(t schema.TableInfo, fk schema.ForeignKeyInfo) string
	DropForeignKey(t schema.TableInfo, name string) string
	DropView(name string) string
	DropProcedure(name string) string
	DropFunction(name string) string
	DropTrigger(tr schema.TriggerInfo) string
	Transactional() bool
}

func rendererFor(d Dialect) (renderer, error) {
	switch d {
	case DialectPostgres:
		return postgresRenderer{}, nil
	case DialectSQLServer:
		return sqlserverRenderer{}, nil
	case DialectMySQL:
		return mysqlRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
}

// quoteQualified quotes each dot-separated part of an already qualified name.
func quoteQualified(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

func isPlainIdent(name string, lowerOnly bool) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
			if lowerOnly {
				return false
			}
		case r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// columnSpec renders "name type [NOT NULL] [DEFAULT expr]" with the
// dialect's identifier quoting.
func columnSpec(c schema.ColumnInfo, quote func(string) string) string {
	var b strings.Builder
	b.WriteString(quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(c.TypeSpec())
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

func joinQuoted(names []string, quote func(string) string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return strings.Join(out, ", ")
}

// createTable is the shared CREATE TABLE shape; dialects differ only in
// identifier quoting here.
func createTable(t schema.TableInfo, quote func(string) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteQualified(t.QualifiedName(), quote))
	for i, c := range t.Columns {
		b.WriteString("  ")
		b.WriteString(columnSpec(c, quote))
		if i < len(t.Columns)-1 || len(t.PrimaryKey) > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	if len(t.PrimaryKey) > 0 {
		fmt.Fprintf(&b, "  PRIMARY KEY (%s)\n", joinQuoted(t.PrimaryKey, quote))
	}
	b.WriteString(")")
	return b.String()
}

func createIndex(t schema.TableInfo, idx schema.IndexInfo, quote func(string) string) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, quote(idx.Name), quoteQualified(t.QualifiedName(), quote), joinQuoted(idx.Columns, quote))
}

func addForeignKey(t schema.TableInfo, fk schema.ForeignKeyInfo, quote func(string) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		quoteQualified(t.QualifiedName(), quote), quote(fk.Name),
		joinQuoted(fk.Columns, quote),
		quoteQualified(fk.RefTable, quote),
		joinQuoted(fk.RefColumns, quote))
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + strings.ToUpper(fk.OnUpdate))
	}
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + strings.ToUpper(fk.OnDelete))
	}
	return b.String()
}
