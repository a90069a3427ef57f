package sample

import (
	"fmt"
	"sort"
)

// UsageError reports an invalid sampling request: bad row counts or
// condition columns that do not exist in the schema. It is always
// raised before any generation work begins.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// ShortfallError reports that rejection sampling could not produce the
// requested rows for a condition. It carries the attempted condition
// for diagnostics.
type ShortfallError struct {
	Condition map[string]interface{}
	Requested int
	Sampled   int
}

func (e *ShortfallError) Error() string {
	suffix := ""
	if len(e.Condition) > 0 {
		suffix = fmt.Sprintf(" (condition: %s)", formatCondition(e.Condition))
	}
	if e.Sampled == 0 {
		return "unable to sample any rows for the given conditions" + suffix
	}
	return fmt.Sprintf("sampled only %d of %d requested rows for the given conditions%s",
		e.Sampled, e.Requested, suffix)
}

// PreexistingOutputError reports that the requested output file
// already exists. Sampling fails fast rather than overwriting it.
type PreexistingOutputError struct {
	Path string
}

func (e *PreexistingOutputError) Error() string {
	return fmt.Sprintf("%s already exists; remove it or provide a different output path", e.Path)
}

func formatCondition(condition map[string]interface{}) string {
	keys := make([]string, 0, len(condition))
	for k := range condition {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%v", k, condition[k])
	}
	return out
}
