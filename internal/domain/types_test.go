package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "short prompt", DeriveTitle("short prompt"))

	exact := strings.Repeat("a", 50)
	assert.Equal(t, exact, DeriveTitle(exact))

	long := strings.Repeat("b", 51)
	assert.Equal(t, strings.Repeat("b", 50)+"...", DeriveTitle(long))

	// counted in characters, not bytes
	accented := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 50)+"...", DeriveTitle(accented))
}

func TestNextID(t *testing.T) {
	assert.Equal(t, int64(1), NextID(nil))
	assert.Equal(t, int64(4), NextID([]int64{1, 3, 2}))
	assert.Equal(t, int64(8), NextID([]int64{7}))
}

func TestPatchSet(t *testing.T) {
	p := Patch{}.Set("title", "X").Set("folderId", nil)
	assert.JSONEq(t, `"X"`, string(p["title"]))
	assert.Equal(t, "null", string(p["folderId"]))
}

func TestPromptHasTag(t *testing.T) {
	p := Prompt{TagIDs: []int64{2, 5}}
	assert.True(t, p.HasTag(5))
	assert.False(t, p.HasTag(1))
}
