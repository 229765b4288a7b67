package pdfcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportStatus(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   string
	}{
		{"searchable", Report{Chars: 900, Searchable: true}, "✓ Searchable"},
		{"minimal", Report{Chars: 12}, "⚠ Minimal text (likely scanned)"},
		{"imageOnly", Report{Chars: 0}, "✗ No text (image-only PDF)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.Status())
		})
	}
}

func TestInspectBytesRejectsNonPDF(t *testing.T) {
	_, err := InspectBytes([]byte("this is not a PDF"), 0)
	require.Error(t, err)
}

func TestInspectFileMissing(t *testing.T) {
	_, err := InspectFile("/no/such/file.pdf", 0)
	require.Error(t, err)
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n(Hello) Tj\n[(wor) -20 (ld)] TJ\n(again) '\nET\n")
	got := textFromContentStream(stream)
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "wor ld")
	assert.Contains(t, got, "again")
}

func TestDecodePDFStringEscapes(t *testing.T) {
	assert.Equal(t, "a(b)c", decodePDFString([]byte(`a\(b\)c`)))
	assert.Equal(t, "tab\there", decodePDFString([]byte(`tab\there`)))
	assert.Equal(t, " ", decodePDFString([]byte(`\040`)))
}

func TestNormalizeSpaceCollapsesRuns(t *testing.T) {
	assert.Equal(t, "a b c", normalizeSpace("  a \n\n b\t\tc  "))
}
