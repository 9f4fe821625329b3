package excel

// Sheet is one worksheet as trimmed header cells and string rows. Every row
// is padded to len(Headers).
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// NumRows returns the number of data rows
func (s *Sheet) NumRows() int {
	return len(s.Rows)
}

// Column returns the raw values of column idx
func (s *Sheet) Column(idx int) []string {
	out := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}

// Workbook represents every usable sheet of a file, in workbook order
type Workbook struct {
	Path   string
	Sheets []Sheet
}

// SheetNames lists the usable sheets
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet looks up a sheet by exact name
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return &w.Sheets[i], true
		}
	}
	return nil, false
}

// SheetData is the input of WriteSheets
type SheetData struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}
