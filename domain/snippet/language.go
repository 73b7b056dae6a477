package snippet

import (
	"errors"
	"path/filepath"
	"strings"
)

// Language detection errors.
var (
	ErrInvalidPath          = errors.New("path must not be empty")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
)

// Language names the programming language of a snippet.
type Language string

// Supported languages.
const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageC          Language = "c"
	LanguageRuby       Language = "ruby"
	LanguagePHP        Language = "php"
	LanguageKotlin     Language = "kotlin"
	LanguageRust       Language = "rust"
	LanguageGo         Language = "go"
	LanguageCPP        Language = "cpp"
	LanguageCSharp     Language = "csharp"
	LanguageJava       Language = "java"
	LanguageSwift      Language = "swift"
)

// extensionLanguages maps lower-case file extensions to languages.
var extensionLanguages = map[string]Language{
	"py":    LanguagePython,
	"js":    LanguageJavaScript,
	"jsx":   LanguageJavaScript,
	"ts":    LanguageTypeScript,
	"tsx":   LanguageTypeScript,
	"c":     LanguageC,
	"h":     LanguageC,
	"rb":    LanguageRuby,
	"php":   LanguagePHP,
	"kt":    LanguageKotlin,
	"rs":    LanguageRust,
	"go":    LanguageGo,
	"cpp":   LanguageCPP,
	"hpp":   LanguageCPP,
	"cs":    LanguageCSharp,
	"java":  LanguageJava,
	"swift": LanguageSwift,
}

// String returns the language name.
func (l Language) String() string { return string(l) }

// LanguageForExtension maps a file extension (with or without a leading dot)
// to a language. Matching is case-insensitive.
func LanguageForExtension(ext string) (Language, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return "", ErrInvalidPath
	}
	lang, ok := extensionLanguages[ext]
	if !ok {
		return "", ErrUnsupportedExtension
	}
	return lang, nil
}

// DetectLanguage maps a file path to a language via its extension. An empty
// path is ErrInvalidPath; an unmapped or missing extension is
// ErrUnsupportedExtension, which callers treat as "skip this file".
func DetectLanguage(path string) (Language, error) {
	if path == "" {
		return "", ErrInvalidPath
	}
	ext := filepath.Ext(path)
	if ext == "" {
		return "", ErrUnsupportedExtension
	}
	return LanguageForExtension(ext)
}

// SupportedExtensions returns every mapped extension.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionLanguages))
	for ext := range extensionLanguages {
		exts = append(exts, ext)
	}
	return exts
}
