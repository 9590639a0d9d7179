// Package registry maps bare column names to default index methods. The
// "selected" index policy consults it so that commonly filtered columns
// (identifiers, geography codes, dates) get indexed without per-column
// configuration.
package registry

import "strings"

// Column names that warrant an index on their own.
var names = map[string]string{
	"id":     "BTREE",
	"year":   "BTREE",
	"month":  "BTREE",
	"date":   "BTREE",
	"state":  "BTREE",
	"county": "BTREE",
	"fips":   "BTREE",
	"zip":    "BTREE",
	"zcta":   "BTREE",
}

// Name suffixes that warrant an index: foreign identifiers, codes and dates.
var suffixes = []string{"_id", "_code", "_date", "_fips", "_zip", "_year"}

// DefaultMethod returns the default index method for a column name, or false
// when the name matches no known convention. Matching is case-insensitive.
func DefaultMethod(column string) (string, bool) {
	name := strings.ToLower(column)
	if method, ok := names[name]; ok {
		return method, true
	}
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return "BTREE", true
		}
	}
	return "", false
}
