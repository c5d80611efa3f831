package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	t.Run("keeps first occurrence order", func(t *testing.T) {
		got := DedupeAndTrim([]string{" 0xbb ", "0xaa", "0xbb", "", "   "})
		assert.Equal(t, []string{"0xbb", "0xaa"}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, DedupeAndTrim(nil))
	})

	t.Run("only blanks", func(t *testing.T) {
		assert.Empty(t, DedupeAndTrim([]string{" ", ""}))
	})
}

func TestTrimStrings(t *testing.T) {
	a, b := "  0xaa ", "title\t"
	TrimStrings(&a, &b)
	assert.Equal(t, "0xaa", a)
	assert.Equal(t, "title", b)
}

func TestToSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"RegistryAddress": "registry_address",
		"ExternalURI":     "external_uri",
		"Title":           "title",
		"ID":              "id",
	} {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}
