package generate

import (
	"errors"
	"strings"
	"testing"

	"schemashift/internal/breaking"
	"schemashift/internal/diff"
	"schemashift/internal/schema"
)

func usersTable(cols ...schema.ColumnInfo) schema.TableInfo {
	return schema.TableInfo{Name: "Users", Columns: cols, PrimaryKey: []string{"Id"}}
}

func idCol() schema.ColumnInfo {
	return schema.ColumnInfo{Name: "Id", RawType: "int", Type: schema.DataTypeInt, IsPrimary: true, OrdinalPos: 1}
}

func snapshot(tables ...schema.TableInfo) *schema.DatabaseSchema {
	return &schema.DatabaseSchema{Name: "app", Tables: tables}
}

func plan(t *testing.T, old, new *schema.DatabaseSchema, dialect Dialect) *Migration {
	t.Helper()
	d := diff.Compare(old, new)
	m, err := FromDiff(d, breaking.Classify(d), "test", "1", "", dialect)
	if err != nil {
		t.Fatalf("FromDiff: %v", err)
	}
	return m
}

func TestDropColumnIsIrreversible(t *testing.T) {
	email := schema.ColumnInfo{Name: "Email", RawType: "nvarchar(255)", Type: schema.DataTypeNVarChar, MaxLength: 255, OrdinalPos: 2}
	old := snapshot(usersTable(idCol(), email))
	new := snapshot(usersTable(idCol()))

	d := diff.Compare(old, new)
	verdicts := breaking.Classify(d)
	if len(verdicts) != 1 || verdicts[0].Severity != breaking.Critical || !verdicts[0].DataLossRisk {
		t.Fatalf("unexpected verdicts: %+v", verdicts)
	}
	if verdicts[0].ObjectName != "Users.Email" {
		t.Errorf("object name = %q, want Users.Email", verdicts[0].ObjectName)
	}

	m, err := FromDiff(d, verdicts, "drop-email", "1", "", DialectSQLServer)
	if err != nil {
		t.Fatalf("FromDiff: %v", err)
	}
	if len(m.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(m.Steps))
	}
	step := m.Steps[0]
	if step.ForwardSQL != "ALTER TABLE Users DROP COLUMN Email" {
		t.Errorf("forward sql = %q", step.ForwardSQL)
	}
	if step.RollbackSQL != nil {
		t.Errorf("destructive drop must have no rollback, got %q", *step.RollbackSQL)
	}
	if !m.HasBreakingChanges() || !m.RequiresDowntime() {
		t.Error("critical verdict must flag breaking changes and downtime")
	}
}

func TestAddNullableColumnIsReversible(t *testing.T) {
	phone := schema.ColumnInfo{Name: "Phone", RawType: "nvarchar(20)", Type: schema.DataTypeNVarChar, MaxLength: 20, Nullable: true, OrdinalPos: 2}
	old := snapshot(usersTable(idCol()))
	new := snapshot(usersTable(idCol(), phone))

	d := diff.Compare(old, new)
	if verdicts := breaking.Classify(d); len(verdicts) != 0 {
		t.Fatalf("adding a nullable column must not be breaking: %+v", verdicts)
	}

	m := plan(t, old, new, DialectSQLServer)
	if len(m.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(m.Steps))
	}
	step := m.Steps[0]
	if step.ForwardSQL != "ALTER TABLE Users ADD Phone nvarchar(20)" {
		t.Errorf("forward sql = %q", step.ForwardSQL)
	}
	if step.RollbackSQL == nil || *step.RollbackSQL != "ALTER TABLE Users DROP COLUMN Phone" {
		t.Errorf("rollback sql = %v", step.RollbackSQL)
	}
	if m.RequiresDowntime() {
		t.Error("metadata-only add must not require downtime")
	}
}

func TestTypeWideningIsReversible(t *testing.T) {
	oldAge := schema.ColumnInfo{Name: "Age", RawType: "int", Type: schema.DataTypeInt, OrdinalPos: 2}
	newAge := schema.ColumnInfo{Name: "Age", RawType: "bigint", Type: schema.DataTypeBigInt, OrdinalPos: 2}
	old := snapshot(usersTable(idCol(), oldAge))
	new := snapshot(usersTable(idCol(), newAge))

	d := diff.Compare(old, new)
	verdicts := breaking.Classify(d)
	if len(verdicts) != 1 || verdicts[0].Severity != breaking.Low || verdicts[0].DataLossRisk {
		t.Fatalf("widening should be low risk: %+v", verdicts)
	}

	m := plan(t, old, new, DialectSQLServer)
	if len(m.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(m.Steps))
	}
	step := m.Steps[0]
	if !strings.Contains(step.ForwardSQL, "bigint") {
		t.Errorf("forward sql = %q", step.ForwardSQL)
	}
	if step.RollbackSQL == nil || !strings.Contains(*step.RollbackSQL, " int") {
		t.Errorf("rollback must restore the old type, got %v", step.RollbackSQL)
	}
	if !step.RequiresLock {
		t.Error("type change should take a lock")
	}
}

func TestNoChanges(t *testing.T) {
	s := snapshot(usersTable(idCol()))
	d := diff.Compare(s, s)
	_, err := FromDiff(d, nil, "noop", "1", "", DialectPostgres)
	if !errors.Is(err, ErrNoChanges) {
		t.Fatalf("err = %v, want ErrNoChanges", err)
	}
}

func TestChecksumStability(t *testing.T) {
	old := snapshot(usersTable(idCol()))
	new := snapshot(usersTable(idCol(), schema.ColumnInfo{Name: "Phone", RawType: "varchar(20)", Nullable: true}))

	m1 := plan(t, old, new, DialectPostgres)
	m2 := plan(t, old, new, DialectPostgres)
	if m1.Checksum != m2.Checksum {
		t.Errorf("checksums differ: %s vs %s", m1.Checksum, m2.Checksum)
	}
	if m1.ID == m2.ID {
		t.Error("each generated migration must get its own id")
	}
	if len(m1.Checksum) != 32 {
		t.Errorf("checksum length = %d, want 32", len(m1.Checksum))
	}
}

func TestDropIndexPrecedesColumnAlter(t *testing.T) {
	oldCode := schema.ColumnInfo{Name: "Code", RawType: "varchar(50)", Type: schema.DataTypeVarChar, MaxLength: 50}
	newCode := schema.ColumnInfo{Name: "Code", RawType: "varchar(100)", Type: schema.DataTypeVarChar, MaxLength: 100}
	oldT := usersTable(idCol(), oldCode)
	oldT.Indexes = []schema.IndexInfo{{Name: "IX_Users_Code", Table: "Users", Columns: []string{"Code"}}}
	newT := usersTable(idCol(), newCode)

	m := plan(t, snapshot(oldT), snapshot(newT), DialectPostgres)

	dropOrder, alterOrder := 0, 0
	for _, s := range m.Steps {
		if strings.HasPrefix(s.ForwardSQL, "DROP INDEX") {
			dropOrder = s.Order
		}
		if strings.Contains(s.ForwardSQL, "ALTER COLUMN") {
			alterOrder = s.Order
		}
	}
	if dropOrder == 0 || alterOrder == 0 {
		t.Fatalf("missing expected steps: %+v", m.Steps)
	}
	if dropOrder >= alterOrder {
		t.Errorf("drop index order %d must precede alter column order %d", dropOrder, alterOrder)
	}
}

func TestCreateTableIncludesIndexesAndKeys(t *testing.T) {
	orders := schema.TableInfo{
		Name: "orders",
		Columns: []schema.ColumnInfo{
			{Name: "id", RawType: "bigint", Type: schema.DataTypeBigInt},
			{Name: "user_id", RawType: "bigint", Type: schema.DataTypeBigInt},
		},
		PrimaryKey:  []string{"id"},
		Indexes:     []schema.IndexInfo{{Name: "ix_orders_user", Table: "orders", Columns: []string{"user_id"}}},
		ForeignKeys: []schema.ForeignKeyInfo{{Name: "fk_orders_user", Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}, OnDelete: "CASCADE"}},
	}
	users := schema.TableInfo{Name: "users", Columns: []schema.ColumnInfo{{Name: "id", RawType: "bigint"}}, PrimaryKey: []string{"id"}}

	m := plan(t, snapshot(users), snapshot(users, orders), DialectPostgres)
	if len(m.Steps) != 3 {
		t.Fatalf("expected create+index+fk, got %d steps", len(m.Steps))
	}
	if !strings.HasPrefix(m.Steps[0].ForwardSQL, "CREATE TABLE orders (") {
		t.Errorf("step 1 = %q", m.Steps[0].ForwardSQL)
	}
	if !strings.Contains(m.Steps[0].ForwardSQL, "PRIMARY KEY (id)") {
		t.Errorf("create table missing pk: %q", m.Steps[0].ForwardSQL)
	}
	var sawIndex, sawFK bool
	for _, s := range m.Steps[1:] {
		if strings.HasPrefix(s.ForwardSQL, "CREATE INDEX ix_orders_user") {
			sawIndex = true
		}
		if strings.Contains(s.ForwardSQL, "FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE") {
			sawFK = true
		}
	}
	if !sawIndex || !sawFK {
		t.Errorf("missing index or fk step: %+v", m.Steps)
	}
}

func TestModifiedViewDropsFirstRecreatesLast(t *testing.T) {
	oldV := &schema.DatabaseSchema{
		Tables: []schema.TableInfo{usersTable(idCol())},
		Views:  []schema.ViewInfo{{Name: "ActiveUsers", Definition: "CREATE VIEW ActiveUsers AS SELECT Id FROM Users"}},
	}
	newV := &schema.DatabaseSchema{
		Tables: []schema.TableInfo{usersTable(idCol(), schema.ColumnInfo{Name: "Phone", RawType: "varchar(20)", Nullable: true})},
		Views:  []schema.ViewInfo{{Name: "ActiveUsers", Definition: "CREATE VIEW ActiveUsers AS SELECT Id, Phone FROM Users"}},
	}

	m := plan(t, oldV, newV, DialectSQLServer)
	if len(m.Steps) != 3 {
		t.Fatalf("expected drop view, add column, recreate view; got %d steps", len(m.Steps))
	}
	if m.Steps[0].ForwardSQL != "DROP VIEW ActiveUsers" {
		t.Errorf("step 1 = %q", m.Steps[0].ForwardSQL)
	}
	if !strings.HasPrefix(m.Steps[1].ForwardSQL, "ALTER TABLE Users ADD Phone") {
		t.Errorf("step 2 = %q", m.Steps[1].ForwardSQL)
	}
	if !strings.HasPrefix(m.Steps[2].ForwardSQL, "CREATE VIEW ActiveUsers AS SELECT Id, Phone") {
		t.Errorf("step 3 = %q", m.Steps[2].ForwardSQL)
	}
	// rollback of the drop restores the old definition
	if m.Steps[0].RollbackSQL == nil || !strings.Contains(*m.Steps[0].RollbackSQL, "SELECT Id FROM Users") {
		t.Errorf("drop view rollback = %v", m.Steps[0].RollbackSQL)
	}
}

func TestMySQLStepsAreNotTransactional(t *testing.T) {
	old := snapshot(usersTable(idCol()))
	new := snapshot(usersTable(idCol(), schema.ColumnInfo{Name: "Phone", RawType: "varchar(20)", Nullable: true}))

	m := plan(t, old, new, DialectMySQL)
	for _, s := range m.Steps {
		if s.Transactional {
			t.Errorf("step %d marked transactional under mysql", s.Order)
		}
	}
	pg := plan(t, old, new, DialectPostgres)
	for _, s := range pg.Steps {
		if !s.Transactional {
			t.Errorf("step %d not transactional under postgres", s.Order)
		}
	}
}

func TestPostgresQuotesMixedCaseIdentifiers(t *testing.T) {
	old := snapshot(usersTable(idCol()))
	new := snapshot(usersTable(idCol(), schema.ColumnInfo{Name: "Phone", RawType: "varchar(20)", Nullable: true}))

	m := plan(t, old, new, DialectPostgres)
	if got := m.Steps[0].ForwardSQL; got != `ALTER TABLE "Users" ADD COLUMN "Phone" varchar(20)` {
		t.Errorf("forward sql = %q", got)
	}
}

func TestUnsupportedDialect(t *testing.T) {
	old := snapshot(usersTable(idCol()))
	new := snapshot()
	d := diff.Compare(old, new)
	if _, err := FromDiff(d, nil, "x", "1", "", Dialect("oracle")); err == nil {
		t.Fatal("expected error for unsupported dialect")
	}
}

func TestScripts(t *testing.T) {
	email := schema.ColumnInfo{Name: "Email", RawType: "nvarchar(255)", Nullable: true}
	old := snapshot(usersTable(idCol(), email))
	new := snapshot(usersTable(idCol(), schema.ColumnInfo{Name: "Phone", RawType: "nvarchar(20)", Nullable: true}))

	m := plan(t, old, new, DialectSQLServer)

	forward := ForwardScript(m)
	if !strings.Contains(forward, "-- checksum: "+m.Checksum) {
		t.Error("forward script missing checksum header")
	}
	if !strings.Contains(forward, "ALTER TABLE Users ADD Phone") || !strings.Contains(forward, "DROP COLUMN Email") {
		t.Errorf("forward script incomplete:\n%s", forward)
	}
	if strings.Index(forward, "ADD Phone") > strings.Index(forward, "DROP COLUMN Email") {
		t.Error("adds must precede drops in forward script")
	}

	rollback := RollbackScript(m)
	if !strings.Contains(rollback, "NO ROLLBACK AVAILABLE") {
		t.Error("rollback script must call out the irreversible drop")
	}
	if !strings.Contains(rollback, "ALTER TABLE Users DROP COLUMN Phone") {
		t.Errorf("rollback script missing column add inverse:\n%s", rollback)
	}
	if irr := m.IrreversibleSteps(); len(irr) != 1 {
		t.Errorf("expected 1 irreversible step, got %d", len(irr))
	}
}
