package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Assistance Cases",
		Headers: []string{"Title", "Status", "Approved"},
		Rows: []map[string]string{
			{"Title": "School fees", "Status": "approved", "Approved": "40000.00"},
			{"Title": "Funeral", "Status": "completed"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Title,Status,Approved\nSchool fees,approved,40000.00\nFuneral,completed,\n", string(out))
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Title", "Drift"},
		Rows: []map[string]string{
			{"Title": "=HYPERLINK(\"http://x\")", "Drift": "-12.50"},
			{"Title": "@SUM(A1)", "Drift": "-7"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Title,Drift\n\"'=HYPERLINK(\"\"http://x\"\")\",-12.50\n'@SUM(A1),-7\n", string(out))
}

func TestExportersRejectEmptyHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewXLSXExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue("Assistance Cases", "A2")
	require.NoError(t, err)
	assert.Equal(t, "School fees", value)
	assert.Equal(t, []string{"Assistance Cases"}, f.GetSheetList())
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	format, err = ParseFormat("excel")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestSheetNameSanitises(t *testing.T) {
	assert.Equal(t, "Fund 2024-25", sheetName("Fund 2024/25"))
	assert.Len(t, []rune(sheetName("A very long report title that overflows the limit")), maxSheetNameLen)
}
