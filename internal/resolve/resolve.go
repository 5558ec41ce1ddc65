// Package resolve extracts values from arbitrary issue JSON given a
// mapping path.
//
// Two forms are supported:
//
//   - Plain dot-paths: "fields.status.name", "fields.labels[0]".
//   - Restricted expressions behind an "expr:" (or legacy "js:") prefix:
//     property access, array indexing, ternary, string concatenation,
//     comparisons, and boolean and/or. One root identifier ("data", with
//     "issue" as an alias) is bound to the input object; bare paths also
//     resolve against it.
//
// No arbitrary code execution is possible: expressions are parsed and
// interpreted here, and a denylist rejects host-runtime identifiers up
// front in case a legacy js: mapping smuggles one in. Resolution never
// raises; every failure yields "value absent".
package resolve

import (
	"fmt"
	"strconv"
	"strings"
)

// Prefix markers routing a mapping to the expression interpreter.
const (
	ExprPrefix   = "expr:"
	LegacyPrefix = "js:"
)

// denied are substrings that disqualify an expression outright. These are
// host-runtime escape hatches from the legacy sandbox; none of them can
// mean anything in the restricted language, so a mapping containing one
// is misconfigured at best.
var denied = []string{
	"process", "require", "import", "eval", "Function",
	"globalThis", "window", "document", "fetch", "XMLHttpRequest",
	"constructor", "__proto__", "prototype",
}

// Resolve extracts a value from doc at the given mapping path. The second
// return is false when the value is absent for any reason: missing key,
// index out of range, parse error, or a denied expression.
func Resolve(doc interface{}, path string) (interface{}, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}

	expr := ""
	switch {
	case strings.HasPrefix(path, ExprPrefix):
		expr = strings.TrimSpace(path[len(ExprPrefix):])
	case strings.HasPrefix(path, LegacyPrefix):
		expr = strings.TrimSpace(path[len(LegacyPrefix):])
	default:
		return resolveDotPath(doc, path)
	}

	for _, bad := range denied {
		if strings.Contains(expr, bad) {
			return nil, false
		}
	}

	val, err := evalExpression(doc, expr)
	if err != nil {
		return nil, false
	}
	return val, true
}

// resolveDotPath walks doc along dot-separated segments with optional
// [i] index suffixes.
func resolveDotPath(doc interface{}, path string) (interface{}, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return nil, false
		}
		name, indexes, ok := splitIndexes(seg)
		if !ok {
			return nil, false
		}
		if name != "" {
			m, isMap := cur.(map[string]interface{})
			if !isMap {
				return nil, false
			}
			v, present := m[name]
			if !present {
				return nil, false
			}
			cur = v
		}
		for _, idx := range indexes {
			arr, isArr := cur.([]interface{})
			if !isArr || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// splitIndexes splits "labels[0][1]" into ("labels", [0, 1]).
func splitIndexes(seg string) (name string, indexes []int, ok bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return seg, nil, true
	}
	name = seg[:open]
	rest := seg[open:]
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, false
		}
		close := strings.IndexByte(rest, ']')
		if close < 0 {
			return "", nil, false
		}
		n, err := strconv.Atoi(rest[1:close])
		if err != nil {
			return "", nil, false
		}
		indexes = append(indexes, n)
		rest = rest[close+1:]
	}
	return name, indexes, true
}

// Stringify renders a resolved value the way it should appear in a text
// or URL cell. Floats that carry no fraction print as integers, matching
// how issue IDs come out of generic JSON decoding.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
