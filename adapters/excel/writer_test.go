package excel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSampleSheetIsDeterministic(t *testing.T) {
	opts := DefaultSampleOptions()
	a := SampleSheet(opts)
	b := SampleSheet(opts)

	assert.Equal(t, a.Rows, b.Rows)
	assert.Len(t, a.Rows, opts.Drivers*opts.Days)
	assert.Len(t, a.Rows[0], len(SampleHeaders))
}

func TestWriteSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	err := WriteSheets(path,
		SheetData{Name: "dados", Headers: []string{"Categoria", "Valor"}, Rows: [][]interface{}{{"A", 1.5}, {"B", 2}}},
		SheetData{Name: "extra", Headers: []string{"x"}},
	)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"dados", "extra"}, f.GetSheetList())
	v, err := f.GetCellValue("dados", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)
}

func TestWriteSheetsRequiresSheets(t *testing.T) {
	assert.Error(t, WriteSheets(filepath.Join(t.TempDir(), "x.xlsx")))
}
