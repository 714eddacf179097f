// Package types holds the binding metadata used by dynamic SQL arguments:
// the standard JDBC type table, Go type lookup by name and the
// type-handler registry that converts values before they reach a driver.
package types

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// JDBCType is a SQL type code. Values match java.sql.Types so that
// numeric codes written in templates keep their usual meaning.
type JDBCType int

// Standard JDBC type codes.
const (
	Unknown JDBCType = math.MinInt32 // not declared

	Bit                   JDBCType = -7
	TinyInt               JDBCType = -6
	SmallInt              JDBCType = 5
	Integer               JDBCType = 4
	BigInt                JDBCType = -5
	Float                 JDBCType = 6
	Real                  JDBCType = 7
	Double                JDBCType = 8
	Numeric               JDBCType = 2
	Decimal               JDBCType = 3
	Char                  JDBCType = 1
	Varchar               JDBCType = 12
	LongVarchar           JDBCType = -1
	Date                  JDBCType = 91
	Time                  JDBCType = 92
	Timestamp             JDBCType = 93
	Binary                JDBCType = -2
	VarBinary             JDBCType = -3
	LongVarBinary         JDBCType = -4
	Null                  JDBCType = 0
	Other                 JDBCType = 1111
	JavaObject            JDBCType = 2000
	Distinct              JDBCType = 2001
	Struct                JDBCType = 2002
	Array                 JDBCType = 2003
	Blob                  JDBCType = 2004
	Clob                  JDBCType = 2005
	Ref                   JDBCType = 2006
	DataLink              JDBCType = 70
	Boolean               JDBCType = 16
	RowID                 JDBCType = -8
	NChar                 JDBCType = -15
	NVarchar              JDBCType = -9
	LongNVarchar          JDBCType = -16
	NClob                 JDBCType = 2011
	SQLXML                JDBCType = 2009
	RefCursor             JDBCType = 2012
	TimeWithTimezone      JDBCType = 2013
	TimestampWithTimezone JDBCType = 2014
)

var jdbcNames = map[JDBCType]string{
	Bit:                   "BIT",
	TinyInt:               "TINYINT",
	SmallInt:              "SMALLINT",
	Integer:               "INTEGER",
	BigInt:                "BIGINT",
	Float:                 "FLOAT",
	Real:                  "REAL",
	Double:                "DOUBLE",
	Numeric:               "NUMERIC",
	Decimal:               "DECIMAL",
	Char:                  "CHAR",
	Varchar:               "VARCHAR",
	LongVarchar:           "LONGVARCHAR",
	Date:                  "DATE",
	Time:                  "TIME",
	Timestamp:             "TIMESTAMP",
	Binary:                "BINARY",
	VarBinary:             "VARBINARY",
	LongVarBinary:         "LONGVARBINARY",
	Null:                  "NULL",
	Other:                 "OTHER",
	JavaObject:            "JAVA_OBJECT",
	Distinct:              "DISTINCT",
	Struct:                "STRUCT",
	Array:                 "ARRAY",
	Blob:                  "BLOB",
	Clob:                  "CLOB",
	Ref:                   "REF",
	DataLink:              "DATALINK",
	Boolean:               "BOOLEAN",
	RowID:                 "ROWID",
	NChar:                 "NCHAR",
	NVarchar:              "NVARCHAR",
	LongNVarchar:          "LONGNVARCHAR",
	NClob:                 "NCLOB",
	SQLXML:                "SQLXML",
	RefCursor:             "REF_CURSOR",
	TimeWithTimezone:      "TIME_WITH_TIMEZONE",
	TimestampWithTimezone: "TIMESTAMP_WITH_TIMEZONE",
}

// jdbcByName is keyed by case-folded name.
var jdbcByName = func() map[string]JDBCType {
	m := make(map[string]JDBCType, len(jdbcNames)+1)
	for t, name := range jdbcNames {
		m[foldName(name)] = t
	}
	m[foldName("INT")] = Integer
	return m
}()

// String returns the JDBC name of the type, or its numeric code when
// the code is not part of the standard table.
func (t JDBCType) String() string {
	if t == Unknown {
		return "UNKNOWN"
	}
	if name, ok := jdbcNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// ParseJDBCType resolves a JDBC type from its numeric code or its
// case-insensitive name. INT is accepted as an alias of INTEGER.
func ParseJDBCType(s string) (JDBCType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown, fmt.Errorf("%w: empty name", ErrUnknownJDBCType)
	}
	if code, err := strconv.Atoi(s); err == nil {
		return JDBCType(code), nil
	}
	if t, ok := jdbcByName[foldName(s)]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("%w: %s", ErrUnknownJDBCType, s)
}

// JDBCTypeNames returns the standard JDBC type names in sorted order.
func JDBCTypeNames() []string {
	names := make([]string, 0, len(jdbcNames))
	for _, name := range jdbcNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// foldName case-folds a type name. A Caser is stateful, so one is
// created per call.
func foldName(s string) string {
	return cases.Fold().String(s)
}
