// Package host is the typed client for the note application's data API:
// database row/column descriptors, batched cell transactions, block and
// attribute CRUD, notebook listing, and the structured attribute query.
package host

// Column describes one column of a host database view.
type Column struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Row describes one database row with its per-column cell ids.
type Row struct {
	ID      string            `json:"id"`
	Columns []Column          `json:"columns"`
	Cells   map[string]string `json:"cells"`            // column id -> cell id
	Values  map[string]string `json:"values,omitempty"` // column id -> plain-text value
}

// ValueByName returns the plain-text value of a named column.
func (r *Row) ValueByName(name string) (string, bool) {
	col, _, ok := r.ColumnByName(name)
	if !ok {
		return "", false
	}
	v, ok := r.Values[col.ID]
	return v, ok
}

// ColumnByName finds a column and its cell id by display name.
func (r *Row) ColumnByName(name string) (Column, string, bool) {
	for _, col := range r.Columns {
		if col.Name == name {
			return col, r.Cells[col.ID], true
		}
	}
	return Column{}, "", false
}

// OpType enumerates the typed cell operations a transaction can carry.
type OpType string

const (
	OpSetText      OpType = "set_text"
	OpSetLink      OpType = "set_link"
	OpSetDate      OpType = "set_date"
	OpEnsureOption OpType = "ensure_option"
	OpSelectOption OpType = "select_option"
	OpStampUpdated OpType = "stamp_updated"
)

// Option is a select-cell option with its palette color.
type Option struct {
	Name  string `json:"name"`
	Color int    `json:"color"`
}

// Op is one typed update inside a transaction.
type Op struct {
	Type     OpType  `json:"type"`
	ColumnID string  `json:"column_id,omitempty"`
	CellID   string  `json:"cell_id,omitempty"`
	Text     string  `json:"text,omitempty"`
	Link     string  `json:"link,omitempty"`
	DateMs   int64   `json:"date_ms,omitempty"` // epoch millis, point in time
	Option   *Option `json:"option,omitempty"`
	StampMs  int64   `json:"stamp_ms,omitempty"`
}

// Notebook is one open notebook in the host.
type Notebook struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

// Block is a content block with its custom attributes.
type Block struct {
	ID      string            `json:"id"`
	Content string            `json:"content"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}
