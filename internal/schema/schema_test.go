package schema

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDataType(t *testing.T) {
	tests := []struct {
		raw  string
		want DataType
	}{
		{"int", DataTypeInt},
		{"INTEGER", DataTypeInt},
		{"int4", DataTypeInt},
		{"NVARCHAR(255)", DataTypeNVarChar},
		{"character varying(100)", DataTypeVarChar},
		{"numeric(10,2)", DataTypeDecimal},
		{"timestamp(3) with time zone", DataTypeTimestamp},
		{"timestamp without time zone", DataTypeDateTime},
		{"uniqueidentifier", DataTypeUUID},
		{"jsonb", DataTypeJSON},
		{"bytea", DataTypeVarBinary},
		{"geography", DataTypeUnknown},
		{"", DataTypeUnknown},
	}
	for _, tt := range tests {
		if got := ParseDataType(tt.raw); got != tt.want {
			t.Errorf("ParseDataType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestQualifiedName(t *testing.T) {
	if got := QualifiedName("dbo", "Users"); got != "dbo.Users" {
		t.Errorf("QualifiedName = %q, want dbo.Users", got)
	}
	if got := QualifiedName("", "Users"); got != "Users" {
		t.Errorf("QualifiedName without schema = %q, want Users", got)
	}
	if got := FoldName("DBO", "Users"); got != "dbo.users" {
		t.Errorf("FoldName = %q, want dbo.users", got)
	}
}

func TestTableLookupsAreCaseInsensitive(t *testing.T) {
	tbl := TableInfo{
		Name: "Users",
		Columns: []ColumnInfo{
			{Name: "Id", RawType: "int"},
			{Name: "Email", RawType: "nvarchar(255)"},
		},
		Indexes:     []IndexInfo{{Name: "IX_Users_Email", Table: "Users", Columns: []string{"Email"}}},
		ForeignKeys: []ForeignKeyInfo{{Name: "FK_Users_Org", Columns: []string{"Id"}, RefTable: "Orgs", RefColumns: []string{"Id"}}},
	}
	if _, ok := tbl.Column("email"); !ok {
		t.Error("Column(email) not found")
	}
	if _, ok := tbl.Column("missing"); ok {
		t.Error("Column(missing) unexpectedly found")
	}
	if _, ok := tbl.Index("ix_users_email"); !ok {
		t.Error("Index lookup not case-insensitive")
	}
	if _, ok := tbl.ForeignKey("fk_users_org"); !ok {
		t.Error("ForeignKey lookup not case-insensitive")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	s := &DatabaseSchema{
		Name: "app",
		Tables: []TableInfo{{
			Name:       "Users",
			Columns:    []ColumnInfo{{Name: "Id", RawType: "int", Type: DataTypeInt}, {Name: "Email", RawType: "nvarchar(255)", Type: DataTypeNVarChar, Nullable: true}},
			PrimaryKey: []string{"Id"},
		}},
		Views: []ViewInfo{{Name: "ActiveUsers", Definition: "CREATE VIEW ActiveUsers AS SELECT 1"}},
	}

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := WriteFile(path, s); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("snapshot changed across write/read (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *DatabaseSchema {
		return &DatabaseSchema{
			Name: "app",
			Tables: []TableInfo{{
				Name:       "Users",
				Columns:    []ColumnInfo{{Name: "Id", RawType: "int"}, {Name: "Email", RawType: "nvarchar(255)"}},
				PrimaryKey: []string{"Id"},
				Indexes:    []IndexInfo{{Name: "IX_Users_Email", Table: "Users", Columns: []string{"Email"}}},
			}},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid schema rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*DatabaseSchema)
	}{
		{"empty table name", func(s *DatabaseSchema) { s.Tables[0].Name = "" }},
		{"no columns", func(s *DatabaseSchema) { s.Tables[0].Columns = nil }},
		{"duplicate table", func(s *DatabaseSchema) { s.Tables = append(s.Tables, s.Tables[0]) }},
		{"duplicate column", func(s *DatabaseSchema) {
			s.Tables[0].Columns = append(s.Tables[0].Columns, ColumnInfo{Name: "EMAIL"})
		}},
		{"pk references unknown column", func(s *DatabaseSchema) { s.Tables[0].PrimaryKey = []string{"Nope"} }},
		{"index references unknown column", func(s *DatabaseSchema) { s.Tables[0].Indexes[0].Columns = []string{"Nope"} }},
		{"trigger without table", func(s *DatabaseSchema) {
			s.Triggers = append(s.Triggers, TriggerInfo{Name: "trg", Definition: "..."})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}
