package importer

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"catalog-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readAll(t *testing.T, r RowReader) []RawRow {
	t.Helper()
	var rows []RawRow
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("catalog.CSV")
	require.NoError(t, err)
	assert.Equal(t, models.ImportFormatCSV, f)

	f, err = DetectFormat("s3://bucket/catalog.xlsx")
	require.NoError(t, err)
	assert.Equal(t, models.ImportFormatXLSX, f)

	_, err = DetectFormat("catalog.json")
	assert.Error(t, err)
}

func TestCSVReader_QuotedFields(t *testing.T) {
	path := writeFile(t, "catalog.csv",
		"name,price,description,variants\n"+
			`"Bar, Chocolate",2.5,"He said ""hi""","[{""flavor"":""Choc"",""weight"":""1kg"",""price"":2.5}]"`+"\n")

	r, err := OpenReader(context.Background(), LocalSource{}, path, "")
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "Bar, Chocolate", rows[0].Values["name"])
	assert.Equal(t, `He said "hi"`, rows[0].Values["description"])
	assert.Equal(t, `[{"flavor":"Choc","weight":"1kg","price":2.5}]`, rows[0].Values["variants"])
}

func TestCSVReader_RowNumbers(t *testing.T) {
	path := writeFile(t, "catalog.csv",
		"name,price\n"+
			"A,1\n"+
			"\n"+
			"B,2\n"+
			"\"C\nsecond line\",3\n"+
			",\n"+
			"D,4\n")

	r, err := OpenReader(context.Background(), LocalSource{}, path, models.ImportFormatCSV)
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 4)

	var numbers []int
	for _, row := range rows {
		numbers = append(numbers, row.Number)
	}
	assert.Equal(t, []int{2, 4, 5, 7}, numbers)
	assert.Equal(t, "C\nsecond line", rows[2].Values["name"])
}

func TestCSVReader_HeaderNormalization(t *testing.T) {
	path := writeFile(t, "catalog.csv", "\ufeffName *, PRICE *,bestSeller\nWhey,10,yes\n")

	r, err := OpenReader(context.Background(), LocalSource{}, path, "")
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]string{"name": "Whey", "price": "10", "bestseller": "yes"}, rows[0].Values)
}

func TestCSVReader_VariableFieldCounts(t *testing.T) {
	path := writeFile(t, "catalog.csv", "name,price,brand\nShort,1\nLong,2,Acme,extra\n")

	r, err := OpenReader(context.Background(), LocalSource{}, path, "")
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.NotContains(t, rows[0].Values, "brand")
	assert.Equal(t, "Acme", rows[1].Values["brand"])
}

func TestOpenReader_MissingFile(t *testing.T) {
	_, err := OpenReader(context.Background(), LocalSource{}, filepath.Join(t.TempDir(), "nope.csv"), "")

	var accessErr *FileAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestOpenReader_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")

	_, err := OpenReader(context.Background(), LocalSource{}, path, "")
	assert.ErrorIs(t, err, ErrFileUnreadable)
}

func TestXLSXReader(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"name *", "price *", "featured"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Whey", 49.99, "yes"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"Casein", 39.5, "no"}))

	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	r, err := OpenReader(context.Background(), LocalSource{}, path, "")
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "Whey", rows[0].Values["name"])
	assert.Equal(t, "49.99", rows[0].Values["price"])
	assert.Equal(t, 4, rows[1].Number)
	assert.Equal(t, "Casein", rows[1].Values["name"])
}

func TestCSVReader_MalformedRecordDoesNotStopReading(t *testing.T) {
	path := writeFile(t, "catalog.csv", "name,price\nWhey,49.99\nCasein,39\"99\nCreatine,19.99\n")

	r, err := OpenReader(context.Background(), LocalSource{}, path, "")
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, row.Number)

	_, err = r.Next()
	var malformed *MalformedRowError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 3, malformed.Row)
	assert.ErrorIs(t, err, csv.ErrBareQuote)

	row, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, row.Number)
	assert.Equal(t, "Creatine", row.Values["name"])

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}
