package breaking

import (
	"strings"

	"schemashift/internal/schema"
)

// typeFamily groups normalized types that can hold each other's values in at
// least one direction. rank orders members within a family by capacity.
type typeFamily int

const (
	familyNone typeFamily = iota
	familyInteger
	familyFloat
	familyExact
	familyCharacter
	familyBinary
	familyTemporal
)

var typeRanks = map[schema.DataType]struct {
	family typeFamily
	rank   int
}{
	schema.DataTypeBit:      {familyInteger, 1},
	schema.DataTypeTinyInt:  {familyInteger, 2},
	schema.DataTypeSmallInt: {familyInteger, 3},
	schema.DataTypeInt:      {familyInteger, 4},
	schema.DataTypeBigInt:   {familyInteger, 5},

	schema.DataTypeReal:  {familyFloat, 1},
	schema.DataTypeFloat: {familyFloat, 2},

	schema.DataTypeMoney:   {familyExact, 1},
	schema.DataTypeDecimal: {familyExact, 2},

	schema.DataTypeChar:     {familyCharacter, 1},
	schema.DataTypeNChar:    {familyCharacter, 1},
	schema.DataTypeVarChar:  {familyCharacter, 2},
	schema.DataTypeNVarChar: {familyCharacter, 2},
	schema.DataTypeText:     {familyCharacter, 3},

	schema.DataTypeBinary:    {familyBinary, 1},
	schema.DataTypeVarBinary: {familyBinary, 2},

	schema.DataTypeDate:      {familyTemporal, 1},
	schema.DataTypeDateTime:  {familyTemporal, 2},
	schema.DataTypeTimestamp: {familyTemporal, 3},
}

// isNarrowing reports whether changing a column from old to new risks losing
// data. Within a family, a lower rank or a shorter length narrows. Across
// families the conversion is assumed lossy.
func isNarrowing(old, new schema.ColumnInfo) bool {
	oldRank, oldKnown := typeRanks[old.Type]
	newRank, newKnown := typeRanks[new.Type]

	if !oldKnown || !newKnown {
		// unmapped type change: assume the worst
		return !strings.EqualFold(old.TypeSpec(), new.TypeSpec())
	}
	if oldRank.family != newRank.family {
		return true
	}
	if newRank.rank < oldRank.rank {
		return true
	}
	if newRank.rank > oldRank.rank {
		return false
	}

	// same type, compare capacity arguments
	if lengthNarrows(old.MaxLength, new.MaxLength) {
		return true
	}
	if old.Precision > 0 && new.Precision > 0 && new.Precision < old.Precision {
		return true
	}
	if old.Scale > 0 && new.Scale > 0 && new.Scale < old.Scale {
		return true
	}
	return false
}

// lengthNarrows compares max lengths where 0 means unspecified and -1 means
// the dialect's MAX.
func lengthNarrows(old, new int) bool {
	if old == 0 || new == 0 {
		return false
	}
	if old == -1 {
		return new != -1
	}
	if new == -1 {
		return false
	}
	return new < old
}
