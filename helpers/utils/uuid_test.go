package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	assert.True(t, IsUUID(a))
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestGenerateShortID(t *testing.T) {
	id := GenerateShortID()
	assert.Len(t, id, 8)
	assert.NotContains(t, id, "-")
	assert.False(t, IsUUID(id))
}
