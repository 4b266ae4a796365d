package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"session_id", "deleted_id"},
		Rows: []map[string]string{
			{"session_id": "s-1", "deleted_id": "e-2"},
			{"session_id": "s-2"},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	out, err := Render(FormatCSV, sampleDataset(), "")
	require.NoError(t, err)
	assert.Equal(t, "session_id,deleted_id\ns-1,e-2\ns-2,\n", string(out))
}

func TestRenderPDF(t *testing.T) {
	out, err := Render(FormatPDF, sampleDataset(), "dedupe report")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := Render(FormatCSV, Dataset{}, "")
	assert.Error(t, err)
	_, err = Render(FormatPDF, Dataset{}, "")
	assert.Error(t, err)
}

func TestRenderRejectsUndeclaredColumn(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, map[string]string{"session_id": "s-3", "kept_id": "e-9"})
	_, err := Render(FormatCSV, data, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kept_id")
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatPDF, FormatFromPath("out/report.PDF"))
	assert.Equal(t, FormatCSV, FormatFromPath("out/report.csv"))
	assert.Equal(t, FormatCSV, FormatFromPath("report"))
}

func TestTruncate(t *testing.T) {
	long := "0123456789012345678901234567890123456789"
	assert.Len(t, []rune(truncate(long)), maxCellRunes)
	assert.Equal(t, "short", truncate("short"))
}
