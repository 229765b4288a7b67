package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIsStableHexSHA256(t *testing.T) {
	a := Hash([]byte("%PDF-1.4 content"))
	b := Hash([]byte("%PDF-1.4 content"))
	c := Hash([]byte("%PDF-1.4 other"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
