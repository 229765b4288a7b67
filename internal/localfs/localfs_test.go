package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ocrmill/ocrmill/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPDFs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.PDF"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	docs, err := ListPDFs(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.PDF", docs[0].Name)
	assert.Equal(t, "b.pdf", docs[1].Name)
	assert.Equal(t, int64(4), docs[0].Size)
	assert.True(t, filepath.IsAbs(docs[0].Handle))
}

func TestListPDFsMissingDir(t *testing.T) {
	_, err := ListPDFs("/no/such/dir")
	require.Error(t, err)
}

func TestSinkStoreWritesMarkdownAndImages(t *testing.T) {
	dir := t.TempDir()
	sink := &Sink{Dir: filepath.Join(dir, "out")}
	doc := pipeline.Document{Handle: "/in/report.pdf", Name: "report.pdf"}
	ext := &pipeline.Extraction{
		Markdown: "# Report",
		Images:   map[string][]byte{"img-0.jpeg": {0xff, 0xd8}},
	}

	dest, err := sink.Store(context.Background(), doc, ext)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "report.md"), dest)

	md, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "# Report", string(md))

	img, err := os.ReadFile(filepath.Join(dir, "out", "report_images", "img-0.jpeg"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, img)
}

func TestSinkStoreInlinesImages(t *testing.T) {
	dir := t.TempDir()
	sink := &Sink{Dir: dir, InlineImages: true}
	doc := pipeline.Document{Name: "scan.pdf"}
	ext := &pipeline.Extraction{
		Markdown: "![img-0.jpeg](img-0.jpeg)",
		Images:   map[string][]byte{"img-0.jpeg": {0x01}},
	}

	dest, err := sink.Store(context.Background(), doc, ext)
	require.NoError(t, err)

	md, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(md), "data:image/jpeg;base64,")

	_, err = os.Stat(filepath.Join(dir, "scan_images"))
	assert.True(t, os.IsNotExist(err), "no image directory expected when inlining")
}

type fixedEngine struct{ ext *pipeline.Extraction }

func (e *fixedEngine) Name() string { return "fixed" }
func (e *fixedEngine) OCR(ctx context.Context, name string, data []byte) (*pipeline.Extraction, error) {
	return e.ext, nil
}

func TestExtractorReadsFileAndDelegates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF fake"), 0o644))

	want := &pipeline.Extraction{Markdown: "hello"}
	e := &Extractor{Engine: &fixedEngine{ext: want}}

	got, err := e.Extract(context.Background(), pipeline.Document{Handle: path, Name: "doc.pdf"})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestExtractorMissingFile(t *testing.T) {
	e := &Extractor{Engine: &fixedEngine{}}
	_, err := e.Extract(context.Background(), pipeline.Document{Handle: "/no/such.pdf", Name: "such.pdf"})
	require.Error(t, err)
}
