package snippet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"main.py", LanguagePython},
		{"Main.KT", LanguageKotlin},
		{"app.jsx", LanguageJavaScript},
		{"index.TSX", LanguageTypeScript},
		{"lib.rs", LanguageRust},
		{"pkg/server.go", LanguageGo},
		{"vec.hpp", LanguageCPP},
		{"Prog.cs", LanguageCSharp},
		{"App.java", LanguageJava},
		{"View.swift", LanguageSwift},
		{"defs.h", LanguageC},
	}
	for _, tt := range tests {
		got, err := DetectLanguage(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestDetectLanguageSkipsAndErrors(t *testing.T) {
	_, err := DetectLanguage("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = DetectLanguage("Makefile")
	assert.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = DetectLanguage("")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLanguageForExtension(t *testing.T) {
	got, err := LanguageForExtension(".Py")
	require.NoError(t, err)
	assert.Equal(t, LanguagePython, got)

	got, err = LanguageForExtension("go")
	require.NoError(t, err)
	assert.Equal(t, LanguageGo, got)

	_, err = LanguageForExtension("")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestComputeSHAIsDeterministic(t *testing.T) {
	a := ComputeSHA("func main() {}", "main.go", LanguageGo)
	b := ComputeSHA("func main() {}", "main.go", LanguageGo)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeSHACoversAllIdentityParts(t *testing.T) {
	base := ComputeSHA("x = 1", "a.py", LanguagePython)

	assert.NotEqual(t, base, ComputeSHA("x = 2", "a.py", LanguagePython))
	assert.NotEqual(t, base, ComputeSHA("x = 1", "b.py", LanguagePython))
	assert.NotEqual(t, base, ComputeSHA("x = 1", "a.py", LanguageRuby))
}

func TestNewSnippet(t *testing.T) {
	s := New(5, "src/app.py", LanguagePython, "def f():\n    pass")

	assert.Equal(t, int64(5), s.CommitID())
	assert.Equal(t, ComputeSHA(s.Content(), s.FilePath(), s.Language()), s.SHA())
	assert.False(t, s.HasEnrichment())

	enriched := s.WithEnrichment("a function that does nothing")
	assert.True(t, enriched.HasEnrichment())
	assert.False(t, s.HasEnrichment(), "receiver is unchanged")
	assert.Equal(t, s.SHA(), enriched.SHA(), "enrichment does not change identity")
}
