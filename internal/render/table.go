package render

// Column describes one table column over rows of T
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Action is a per-row control. Show hides it for rows it does not apply to.
type Action[T any] struct {
	Label string
	Href  func(T) string
	Post  bool
	Show  func(T) bool
}

// Row is one rendered table row
type Row struct {
	Cells   []string
	Actions []Link
}

// Table is a materialized table ready for the layout
type Table struct {
	Headers []string
	Rows    []Row
	Empty   string
}

// NewTable renders rows through the column and action descriptors
func NewTable[T any](rows []T, columns []Column[T], actions []Action[T], empty string) *Table {
	t := &Table{Empty: empty}
	for _, c := range columns {
		t.Headers = append(t.Headers, c.Header)
	}
	if len(actions) > 0 {
		t.Headers = append(t.Headers, "Actions")
	}

	for _, item := range rows {
		row := Row{Cells: make([]string, 0, len(columns))}
		for _, c := range columns {
			row.Cells = append(row.Cells, c.Value(item))
		}
		for _, a := range actions {
			if a.Show != nil && !a.Show(item) {
				continue
			}
			row.Actions = append(row.Actions, Link{Label: a.Label, Href: a.Href(item), Post: a.Post})
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// HasActions reports whether the table reserved an actions column
func (t *Table) HasActions() bool {
	return len(t.Headers) > 0 && t.Headers[len(t.Headers)-1] == "Actions"
}
