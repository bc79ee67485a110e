package generator

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/lucasefe/docsql/schema"
)

type tableDump struct {
	Name    string       `json:"name"`
	Columns []columnDump `json:"columns"`
	Rows    [][]any      `json:"rows"`
}

type columnDump struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Index bool   `json:"index,omitempty"`
}

// JSON returns the tables of s with their accumulated rows, in schema order.
// Timestamps are written as RFC 3339.
func JSON(s *schema.Schema) ([]byte, error) {
	dumps := make([]tableDump, 0, len(s.Tables))
	for _, table := range s.Tables {
		d := tableDump{
			Name:    table.Name,
			Columns: make([]columnDump, 0, len(table.Columns)),
			Rows:    make([][]any, 0, table.RowCount()),
		}
		for _, c := range table.Columns {
			d.Columns = append(d.Columns, columnDump{Name: c.Name, Type: string(c.Type), Index: c.IsIndex})
		}
		for i := 0; i < table.RowCount(); i++ {
			d.Rows = append(d.Rows, table.Row(i))
		}
		dumps = append(dumps, d)
	}
	return json.MarshalIndent(dumps, "", "  ")
}

// WriteJSON writes the JSON dump of s to w followed by a newline.
func WriteJSON(w io.Writer, s *schema.Schema) error {
	data, err := JSON(s)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
