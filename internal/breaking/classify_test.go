package breaking

import (
	"strings"
	"testing"

	"schemashift/internal/diff"
	"schemashift/internal/schema"
)

func col(name, raw string, dt schema.DataType) schema.ColumnInfo {
	return schema.ColumnInfo{Name: name, RawType: raw, Type: dt}
}

func TestClassifyColumnRemovedIsCritical(t *testing.T) {
	d := diff.SchemaDiff{Changes: []diff.ObjectChange{{
		Type: diff.ObjectTable, Name: "Users", Kind: diff.Modified,
		Details: []diff.ChangeDetail{diff.ColumnRemoved{Column: col("Email", "nvarchar(255)", schema.DataTypeNVarChar)}},
	}}}

	got := Classify(d)
	if len(got) != 1 {
		t.Fatalf("expected 1 verdict, got %d", len(got))
	}
	bc := got[0]
	if bc.Severity != Critical {
		t.Errorf("severity = %s, want critical", bc.Severity)
	}
	if !bc.DataLossRisk {
		t.Error("expected data loss risk")
	}
	if bc.ObjectName != "Users.Email" {
		t.Errorf("object name = %q, want Users.Email", bc.ObjectName)
	}
}

func TestClassifyTableRemovedIsCritical(t *testing.T) {
	d := diff.SchemaDiff{Changes: []diff.ObjectChange{{
		Type: diff.ObjectTable, Name: "Legacy", Kind: diff.Removed,
	}}}
	got := Classify(d)
	if len(got) != 1 || got[0].Severity != Critical || !got[0].DataLossRisk {
		t.Fatalf("unexpected verdict: %+v", got)
	}
}

func TestClassifyViewRemovedIsHigh(t *testing.T) {
	d := diff.SchemaDiff{Changes: []diff.ObjectChange{{
		Type: diff.ObjectView, Name: "ActiveUsers", Kind: diff.Removed,
	}}}
	got := Classify(d)
	if len(got) != 1 || got[0].Severity != High || got[0].DataLossRisk {
		t.Fatalf("unexpected verdict: %+v", got)
	}
}

func TestClassifyTypeChanges(t *testing.T) {
	tests := []struct {
		name         string
		old, new     schema.ColumnInfo
		wantSeverity Severity
		wantLoss     bool
	}{
		{
			name: "bigint to int narrows",
			old:  col("Count", "bigint", schema.DataTypeBigInt),
			new:  col("Count", "int", schema.DataTypeInt),

			wantSeverity: High, wantLoss: true,
		},
		{
			name: "int to bigint widens",
			old:  col("Count", "int", schema.DataTypeInt),
			new:  col("Count", "bigint", schema.DataTypeBigInt),

			wantSeverity: Low, wantLoss: false,
		},
		{
			name: "varchar shrinks",
			old:  schema.ColumnInfo{Name: "Code", RawType: "varchar(50)", Type: schema.DataTypeVarChar, MaxLength: 50},
			new:  schema.ColumnInfo{Name: "Code", RawType: "varchar(10)", Type: schema.DataTypeVarChar, MaxLength: 10},

			wantSeverity: High, wantLoss: true,
		},
		{
			name: "varchar grows",
			old:  schema.ColumnInfo{Name: "Code", RawType: "varchar(10)", Type: schema.DataTypeVarChar, MaxLength: 10},
			new:  schema.ColumnInfo{Name: "Code", RawType: "varchar(50)", Type: schema.DataTypeVarChar, MaxLength: 50},

			wantSeverity: Low, wantLoss: false,
		},
		{
			name: "varchar max to bounded narrows",
			old:  schema.ColumnInfo{Name: "Body", RawType: "nvarchar(max)", Type: schema.DataTypeNVarChar, MaxLength: -1},
			new:  schema.ColumnInfo{Name: "Body", RawType: "nvarchar(4000)", Type: schema.DataTypeNVarChar, MaxLength: 4000},

			wantSeverity: High, wantLoss: true,
		},
		{
			name: "cross family is treated as narrowing",
			old:  col("Flag", "int", schema.DataTypeInt),
			new:  col("Flag", "varchar(10)", schema.DataTypeVarChar),

			wantSeverity: High, wantLoss: true,
		},
		{
			name: "change between unmapped types is treated as narrowing",
			old:  col("Shape", "geometry", schema.DataTypeUnknown),
			new:  col("Shape", "geography", schema.DataTypeUnknown),

			wantSeverity: High, wantLoss: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := diff.SchemaDiff{Changes: []diff.ObjectChange{{
				Type: diff.ObjectTable, Name: "T", Kind: diff.Modified,
				Details: []diff.ChangeDetail{diff.TypeChanged{Column: tt.new.Name, Old: tt.old, New: tt.new}},
			}}}
			got := Classify(d)
			if len(got) != 1 {
				t.Fatalf("expected 1 verdict, got %d", len(got))
			}
			if got[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", got[0].Severity, tt.wantSeverity)
			}
			if got[0].DataLossRisk != tt.wantLoss {
				t.Errorf("data loss = %v, want %v", got[0].DataLossRisk, tt.wantLoss)
			}
		})
	}
}

func TestClassifyNotNullTighteningIsMedium(t *testing.T) {
	d := diff.SchemaDiff{Changes: []diff.ObjectChange{{
		Type: diff.ObjectTable, Name: "Users", Kind: diff.Modified,
		Details: []diff.ChangeDetail{diff.NullabilityChanged{Column: "Email", OldNullable: true, NewNullable: false}},
	}}}
	got := Classify(d)
	if len(got) != 1 || got[0].Severity != Medium {
		t.Fatalf("unexpected verdict: %+v", got)
	}
	if !strings.Contains(got[0].Remediation, "backfill") {
		t.Errorf("remediation = %q, want backfill guidance", got[0].Remediation)
	}
}

func TestClassifyNullabilityLooseningIsLow(t *testing.T) {
	d := diff.SchemaDiff{Changes: []diff.ObjectChange{{
		Type: diff.ObjectTable, Name: "Users", Kind: diff.Modified,
		Details: []diff.ChangeDetail{diff.NullabilityChanged{Column: "Email", OldNullable: false, NewNullable: true}},
	}}}
	got := Classify(d)
	if len(got) != 1 || got[0].Severity != Low {
		t.Fatalf("loosening NOT NULL should fall through to low: %+v", got)
	}
}

func TestClassifyParameterRemovedIsHigh(t *testing.T) {
	d := diff.SchemaDiff{Changes: []diff.ObjectChange{{
		Type: diff.ObjectProcedure, Name: "GetUser", Kind: diff.Modified,
		Details: []diff.ChangeDetail{diff.ParameterRemoved{Name: "@IncludeDeleted"}},
	}}}
	got := Classify(d)
	if len(got) != 1 || got[0].Severity != High {
		t.Fatalf("unexpected verdict: %+v", got)
	}
}

func TestClassifyAddedIsNeverBreaking(t *testing.T) {
	d := diff.SchemaDiff{Changes: []diff.ObjectChange{
		{Type: diff.ObjectTable, Name: "Orders", Kind: diff.Added},
		{Type: diff.ObjectView, Name: "V", Kind: diff.Added},
		{Type: diff.ObjectTrigger, Name: "Trg", Kind: diff.Added},
	}}
	if got := Classify(d); len(got) != 0 {
		t.Fatalf("added objects must not be flagged: %+v", got)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// column removal outranks the type change also present on the object
	d := diff.SchemaDiff{Changes: []diff.ObjectChange{{
		Type: diff.ObjectTable, Name: "Users", Kind: diff.Modified,
		Details: []diff.ChangeDetail{
			diff.TypeChanged{Column: "Age", Old: col("Age", "bigint", schema.DataTypeBigInt), New: col("Age", "int", schema.DataTypeInt)},
			diff.ColumnRemoved{Column: col("Email", "nvarchar(255)", schema.DataTypeNVarChar)},
		},
	}}}
	got := Classify(d)
	if len(got) != 1 {
		t.Fatalf("expected exactly one verdict per change, got %d", len(got))
	}
	if got[0].Severity != Critical || got[0].ObjectName != "Users.Email" {
		t.Fatalf("unexpected verdict: %+v", got[0])
	}
}

func TestClassifySymmetry(t *testing.T) {
	a := &schema.DatabaseSchema{Tables: []schema.TableInfo{
		{Name: "Users", Columns: []schema.ColumnInfo{{Name: "Id", RawType: "int"}}},
		{Name: "Legacy", Columns: []schema.ColumnInfo{{Name: "Id", RawType: "int"}}},
	}}
	b := &schema.DatabaseSchema{Tables: []schema.TableInfo{
		{Name: "Users", Columns: []schema.ColumnInfo{{Name: "Id", RawType: "int"}}},
		{Name: "Orders", Columns: []schema.ColumnInfo{{Name: "Id", RawType: "int"}}},
	}}

	forward := Classify(diff.Compare(a, b))
	backward := Classify(diff.Compare(b, a))

	if len(forward) != 1 || forward[0].ObjectName != "Legacy" || forward[0].ChangeKind != diff.Removed {
		t.Fatalf("forward verdicts: %+v", forward)
	}
	if len(backward) != 1 || backward[0].ObjectName != "Orders" || backward[0].ChangeKind != diff.Removed {
		t.Fatalf("backward verdicts: %+v", backward)
	}
}
