package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title:   "School costs 2026-09",
		Headers: []string{"School", "Total (USD)"},
		Rows:    [][]string{{"Escola A", "75.0000"}, {"Escola B", "12.5000"}},
		Footer:  []string{"Total", "87.50"},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, "School,Total (USD)\nEscola A,75.0000\nEscola B,12.5000\nTotal,87.50\n", string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, []string{"only one"})
	_, err := NewCSVExporter().Render(table)
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Table{})
	assert.Error(t, err)
	_, err = NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}
