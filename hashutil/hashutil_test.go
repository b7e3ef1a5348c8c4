package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_Deterministic(t *testing.T) {
	content := []byte("package main\n\nfunc main() {}\n")
	assert.Equal(t, Hash(content), Hash(content))
}

func TestHash_DiffersOnDifferentContent(t *testing.T) {
	assert.NotEqual(t, HashString("a"), HashString("b"))
}

func TestHash_IsHexSHA256(t *testing.T) {
	got := HashString("hello")
	assert.Len(t, got, 64)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)
}
