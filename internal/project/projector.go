// Package project turns a fetched tracker issue into a batch of typed
// cell operations against a host database row. Each configured field
// mapping is resolved against the issue document and coerced to the
// column's declared type.
package project

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/notetrack/notetrack/internal/colors"
	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/host"
	"github.com/notetrack/notetrack/internal/resolve"
	"github.com/notetrack/notetrack/internal/types"
)

// jira timestamps carry a zone offset with no colon.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

// Projector maps issue fields onto row cells.
type Projector struct {
	Mappings map[string]string // column name -> resolution path
	Types    map[string]string // column name -> field type override
	Colors   *colors.Manager
	Now      func() time.Time
}

// Project resolves every mapped field against the issue and emits the
// ops needed to bring the target row up to date. Columns missing from
// the row and paths that resolve to nothing are skipped with a warning.
// When at least one cell changes, a stamp op recording the sync time is
// appended. An empty result means no transaction should be sent.
func (p *Projector) Project(issue map[string]interface{}, row *host.Row) []host.Op {
	names := make([]string, 0, len(p.Mappings))
	for name := range p.Mappings {
		names = append(names, name)
	}
	sort.Strings(names)

	var ops []host.Op
	for _, name := range names {
		col, cellID, found := row.ColumnByName(name)
		if !found {
			debug.Warnf("project: no column %q in row %s, skipping", name, row.ID)
			continue
		}
		val, ok := resolve.Resolve(issue, p.Mappings[name])
		if !ok || val == nil {
			debug.Warnf("project: path %q resolved to nothing for column %q", p.Mappings[name], name)
			continue
		}
		op, ok := p.cellOp(col, cellID, val)
		if !ok {
			continue
		}
		ops = append(ops, op)
	}

	if len(ops) > 0 {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		ops = append(ops, host.Op{Type: host.OpStampUpdated, StampMs: now().UnixMilli()})
	}
	return ops
}

func (p *Projector) cellOp(col host.Column, cellID string, val interface{}) (host.Op, bool) {
	switch p.fieldType(col) {
	case types.FieldDate:
		ms, ok := toEpochMillis(val)
		if !ok {
			debug.Warnf("project: cannot parse %v as a date for column %q", val, col.Name)
			return host.Op{}, false
		}
		return host.Op{Type: host.OpSetDate, ColumnID: col.ID, CellID: cellID, DateMs: ms}, true

	case types.FieldSelect:
		name := resolve.Stringify(val)
		if name == "" {
			return host.Op{}, false
		}
		opt := &host.Option{Name: name, Color: p.Colors.ColorFor(col.Name, name)}
		// ensure first so selecting an unseen option cannot fail
		return host.Op{Type: host.OpEnsureOption, ColumnID: col.ID, CellID: cellID, Option: opt}, true

	case types.FieldURL:
		return host.Op{Type: host.OpSetLink, ColumnID: col.ID, CellID: cellID, Link: resolve.Stringify(val)}, true

	default:
		return host.Op{Type: host.OpSetText, ColumnID: col.ID, CellID: cellID, Text: resolve.Stringify(val)}, true
	}
}

// fieldType prefers the configured override, then the column's own
// declared type, then text.
func (p *Projector) fieldType(col host.Column) string {
	if t, ok := p.Types[col.Name]; ok {
		return t
	}
	if col.Type != "" {
		return col.Type
	}
	return types.FieldText
}

// Expand splits a select projection into its ensure and select ops.
// The projector emits a single ensure op per select column; the
// transaction builder widens it so the option exists before selection.
func Expand(ops []host.Op) []host.Op {
	out := make([]host.Op, 0, len(ops))
	for _, op := range ops {
		if op.Type == host.OpEnsureOption {
			out = append(out, op)
			out = append(out, host.Op{Type: host.OpSelectOption, ColumnID: op.ColumnID, CellID: op.CellID, Option: op.Option})
			continue
		}
		out = append(out, op)
	}
	return out
}

func toEpochMillis(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case float64:
		// numeric values are already epoch millis
		return int64(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UnixMilli(), true
			}
		}
	}
	return 0, false
}
