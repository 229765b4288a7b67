package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineImages(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff}
	md := "intro\n\n![img-0.jpeg](img-0.jpeg)\n\noutro"

	got := InlineImages(md, map[string][]byte{"img-0.jpeg": img})

	want := fmt.Sprintf("intro\n\n![img-0.jpeg](data:image/jpeg;base64,%s)\n\noutro",
		base64.StdEncoding.EncodeToString(img))
	assert.Equal(t, want, got)
}

func TestInlineImagesLeavesUnreferencedMarkdownAlone(t *testing.T) {
	md := "no images here"
	assert.Equal(t, md, InlineImages(md, map[string][]byte{"img-1.png": {1}}))
}

func TestMimeForName(t *testing.T) {
	assert.Equal(t, "image/png", mimeForName("chart.png"))
	assert.Equal(t, "image/gif", mimeForName("anim.gif"))
	assert.Equal(t, "image/jpeg", mimeForName("img-0.jpeg"))
	assert.Equal(t, "image/jpeg", mimeForName("unknown"))
}

func TestNewEngineSelectsMistralByDefault(t *testing.T) {
	eng, err := NewEngine(context.Background(), Config{MistralAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "mistral", eng.Name())
}

func TestNewEngineRejectsUnknownProvider(t *testing.T) {
	_, err := NewEngine(context.Background(), Config{Provider: "tesseract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
