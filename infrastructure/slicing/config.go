// Package slicing extracts context-complete code snippets from source files
// with tree-sitter.
package slicing

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kodit-ai/kodit/domain/snippet"
)

// grammar describes how one language's AST maps onto snippet extraction:
// which node types are function definitions, which are class-like containers
// whose headers give context, and which are imports.
type grammar struct {
	// language is the primary tree-sitter grammar; fallback, when set, is
	// tried if the primary parse reports errors (tsx for typescript, since
	// .tsx shares the typescript language name).
	language  *sitter.Language
	fallback  *sitter.Language
	functions []string
	classes   []string
	imports   []string
}

func (g grammar) isFunction(nodeType string) bool { return contains(g.functions, nodeType) }
func (g grammar) isClass(nodeType string) bool    { return contains(g.classes, nodeType) }
func (g grammar) isImport(nodeType string) bool   { return contains(g.imports, nodeType) }

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

var grammars = map[snippet.Language]grammar{
	snippet.LanguagePython: {
		language:  python.GetLanguage(),
		functions: []string{"function_definition"},
		classes:   []string{"class_definition"},
		imports:   []string{"import_statement", "import_from_statement"},
	},
	snippet.LanguageJavaScript: {
		language:  javascript.GetLanguage(),
		functions: []string{"function_declaration", "generator_function_declaration", "method_definition"},
		classes:   []string{"class_declaration"},
		imports:   []string{"import_statement"},
	},
	snippet.LanguageTypeScript: {
		language:  typescript.GetLanguage(),
		fallback:  tsx.GetLanguage(),
		functions: []string{"function_declaration", "generator_function_declaration", "method_definition"},
		classes:   []string{"class_declaration"},
		imports:   []string{"import_statement"},
	},
	snippet.LanguageC: {
		language:  c.GetLanguage(),
		functions: []string{"function_definition"},
		classes:   []string{"struct_specifier", "union_specifier"},
		imports:   []string{"preproc_include"},
	},
	snippet.LanguageRuby: {
		language:  ruby.GetLanguage(),
		functions: []string{"method", "singleton_method"},
		classes:   []string{"class", "module"},
		imports:   nil,
	},
	snippet.LanguagePHP: {
		language:  php.GetLanguage(),
		functions: []string{"function_definition", "method_declaration"},
		classes:   []string{"class_declaration", "interface_declaration", "trait_declaration"},
		imports:   []string{"namespace_use_declaration"},
	},
	snippet.LanguageKotlin: {
		language:  kotlin.GetLanguage(),
		functions: []string{"function_declaration"},
		classes:   []string{"class_declaration", "object_declaration"},
		imports:   []string{"import_header"},
	},
	snippet.LanguageRust: {
		language:  rust.GetLanguage(),
		functions: []string{"function_item"},
		classes:   []string{"impl_item", "trait_item", "mod_item"},
		imports:   []string{"use_declaration"},
	},
	snippet.LanguageGo: {
		language:  golang.GetLanguage(),
		functions: []string{"function_declaration", "method_declaration"},
		classes:   nil,
		imports:   []string{"import_declaration"},
	},
	snippet.LanguageCPP: {
		language:  cpp.GetLanguage(),
		functions: []string{"function_definition"},
		classes:   []string{"class_specifier", "struct_specifier", "namespace_definition"},
		imports:   []string{"preproc_include", "using_declaration"},
	},
	snippet.LanguageCSharp: {
		language:  csharp.GetLanguage(),
		functions: []string{"method_declaration", "constructor_declaration", "local_function_statement"},
		classes:   []string{"class_declaration", "struct_declaration", "interface_declaration"},
		imports:   []string{"using_directive"},
	},
	snippet.LanguageJava: {
		language:  java.GetLanguage(),
		functions: []string{"method_declaration", "constructor_declaration"},
		classes:   []string{"class_declaration", "interface_declaration", "enum_declaration"},
		imports:   []string{"import_declaration"},
	},
	snippet.LanguageSwift: {
		language:  swift.GetLanguage(),
		functions: []string{"function_declaration", "init_declaration"},
		classes:   []string{"class_declaration", "protocol_declaration"},
		imports:   []string{"import_declaration"},
	},
}

// SupportedLanguages returns the languages the slicer can parse.
func SupportedLanguages() []snippet.Language {
	langs := make([]snippet.Language, 0, len(grammars))
	for lang := range grammars {
		langs = append(langs, lang)
	}
	return langs
}
