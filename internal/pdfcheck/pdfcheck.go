// Package pdfcheck decides whether a PDF already carries an extractable text
// layer, in which case OCR can be skipped. The check samples the first few
// pages and counts characters in the content streams; it is a local, cheap
// heuristic, never an OCR call.
package pdfcheck

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	// DefaultMinChars is the character threshold above which a PDF counts as
	// searchable.
	DefaultMinChars = 50

	// pagesToSample bounds how many leading pages are inspected.
	pagesToSample = 3
)

// Report summarizes the text-layer inspection of one PDF.
type Report struct {
	Pages      int
	Chars      int
	Searchable bool
}

// Status renders the report the way the check command prints it.
func (r *Report) Status() string {
	switch {
	case r.Searchable:
		return "✓ Searchable"
	case r.Chars > 0:
		return "⚠ Minimal text (likely scanned)"
	default:
		return "✗ No text (image-only PDF)"
	}
}

// InspectFile inspects the PDF at path. A minChars of 0 or below uses
// DefaultMinChars.
func InspectFile(path string, minChars int) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return InspectBytes(data, minChars)
}

// InspectBytes inspects an in-memory PDF.
func InspectBytes(data []byte, minChars int) (*Report, error) {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcheck: read PDF: %w", err)
	}

	sample := pdfCtx.PageCount
	if sample > pagesToSample {
		sample = pagesToSample
	}

	chars := 0
	for pageNr := 1; pageNr <= sample; pageNr++ {
		chars += len(strings.TrimSpace(pageText(pdfCtx, pageNr)))
	}

	return &Report{
		Pages:      pdfCtx.PageCount,
		Chars:      chars,
		Searchable: chars >= minChars,
	}, nil
}

func pageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// pdfStringRe matches PDF string literals: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// textFromContentStream pulls string literals off the text-showing operators
// (Tj, TJ, ') in a page content stream.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		showsText := bytes.HasSuffix(line, []byte("Tj")) ||
			bytes.HasSuffix(line, []byte("TJ")) ||
			(bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")))
		if !showsText {
			continue
		}
		for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
			if text := decodePDFString(m[1]); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
	}
	return normalizeSpace(sb.String())
}

// decodePDFString handles the basic PDF string escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

func normalizeSpace(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		if unicode.IsPrint(r) {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
