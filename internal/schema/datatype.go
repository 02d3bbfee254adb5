package schema

import "strings"

// DataType is the normalized, engine-independent name for a column type.
// Extractors map dialect-specific names onto this set; anything they cannot
// map stays DataTypeUnknown and is compared by raw text only.
type DataType string

const (
	DataTypeUnknown   DataType = "unknown"
	DataTypeBit       DataType = "bit"
	DataTypeTinyInt   DataType = "tinyint"
	DataTypeSmallInt  DataType = "smallint"
	DataTypeInt       DataType = "int"
	DataTypeBigInt    DataType = "bigint"
	DataTypeReal      DataType = "real"
	DataTypeFloat     DataType = "float"
	DataTypeDecimal   DataType = "decimal"
	DataTypeMoney     DataType = "money"
	DataTypeChar      DataType = "char"
	DataTypeVarChar   DataType = "varchar"
	DataTypeNChar     DataType = "nchar"
	DataTypeNVarChar  DataType = "nvarchar"
	DataTypeText      DataType = "text"
	DataTypeBinary    DataType = "binary"
	DataTypeVarBinary DataType = "varbinary"
	DataTypeDate      DataType = "date"
	DataTypeTime      DataType = "time"
	DataTypeDateTime  DataType = "datetime"
	DataTypeTimestamp DataType = "timestamp"
	DataTypeBoolean   DataType = "boolean"
	DataTypeUUID      DataType = "uuid"
	DataTypeJSON      DataType = "json"
	DataTypeXML       DataType = "xml"
)

// typeAliases folds dialect spellings onto the normalized set.
var typeAliases = map[string]DataType{
	"bit":              DataTypeBit,
	"tinyint":          DataTypeTinyInt,
	"smallint":         DataTypeSmallInt,
	"int":              DataTypeInt,
	"integer":          DataTypeInt,
	"int4":             DataTypeInt,
	"bigint":           DataTypeBigInt,
	"int8":             DataTypeBigInt,
	"real":             DataTypeReal,
	"float":            DataTypeFloat,
	"float8":           DataTypeFloat,
	"double":           DataTypeFloat,
	"double precision": DataTypeFloat,
	"decimal":          DataTypeDecimal,
	"numeric":          DataTypeDecimal,
	"money":            DataTypeMoney,
	"smallmoney":       DataTypeMoney,
	"char":             DataTypeChar,
	"character":        DataTypeChar,
	"varchar":          DataTypeVarChar,
	"character varying": DataTypeVarChar,
	"nchar":            DataTypeNChar,
	"nvarchar":         DataTypeNVarChar,
	"text":             DataTypeText,
	"ntext":            DataTypeText,
	"mediumtext":       DataTypeText,
	"longtext":         DataTypeText,
	"binary":           DataTypeBinary,
	"varbinary":        DataTypeVarBinary,
	"bytea":            DataTypeVarBinary,
	"blob":             DataTypeVarBinary,
	"image":            DataTypeVarBinary,
	"date":             DataTypeDate,
	"time":             DataTypeTime,
	"datetime":         DataTypeDateTime,
	"datetime2":        DataTypeDateTime,
	"smalldatetime":    DataTypeDateTime,
	"timestamp":        DataTypeTimestamp,
	"timestamptz":      DataTypeTimestamp,
	"timestamp with time zone":    DataTypeTimestamp,
	"timestamp without time zone": DataTypeDateTime,
	"datetimeoffset":   DataTypeTimestamp,
	"boolean":          DataTypeBoolean,
	"bool":             DataTypeBoolean,
	"uuid":             DataTypeUUID,
	"uniqueidentifier": DataTypeUUID,
	"json":             DataTypeJSON,
	"jsonb":            DataTypeJSON,
	"xml":              DataTypeXML,
}

// ParseDataType normalizes a raw type string such as "NVARCHAR(255)" or
// "numeric(10,2)" to its DataType. Length and precision arguments are
// ignored here; they live in ColumnInfo.
func ParseDataType(raw string) DataType {
	base := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(base, '('); i >= 0 {
		// keep any suffix after the argument list, e.g. "timestamp(3) with time zone"
		closing := strings.IndexByte(base[i:], ')')
		if closing >= 0 {
			base = strings.TrimSpace(base[:i] + base[i+closing+1:])
		} else {
			base = strings.TrimSpace(base[:i])
		}
	}
	if dt, ok := typeAliases[base]; ok {
		return dt
	}
	return DataTypeUnknown
}
