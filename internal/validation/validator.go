package validation

import (
	"regexp"
	"strings"
)

// identifier validation: allow simple SQL identifiers only (prevents
// injection via table/column names when loading into a database).
var (
	identRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reservedWords = map[string]struct{}{
		"add": {}, "all": {}, "alter": {}, "and": {}, "any": {}, "as": {},
		"asc": {}, "between": {}, "by": {}, "case": {}, "check": {},
		"column": {}, "constraint": {}, "create": {}, "cross": {}, "default": {},
		"delete": {}, "desc": {}, "distinct": {}, "drop": {}, "else": {},
		"end": {}, "except": {}, "exists": {}, "false": {}, "for": {},
		"foreign": {}, "from": {}, "full": {}, "grant": {}, "group": {},
		"having": {}, "in": {}, "index": {}, "inner": {}, "insert": {},
		"intersect": {}, "into": {}, "is": {}, "join": {}, "key": {},
		"left": {}, "like": {}, "limit": {}, "not": {}, "null": {},
		"offset": {}, "on": {}, "or": {}, "order": {}, "outer": {},
		"primary": {}, "references": {}, "right": {}, "schema": {},
		"select": {}, "set": {}, "table": {}, "then": {}, "true": {},
		"truncate": {}, "union": {}, "unique": {}, "update": {}, "user": {},
		"using": {}, "values": {}, "view": {}, "when": {}, "where": {},
		"with": {},
	}
)

func IsValidIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if !identRe.MatchString(s) {
		return false
	}
	if _, ok := reservedWords[strings.ToLower(s)]; ok {
		return false
	}
	return true
}
