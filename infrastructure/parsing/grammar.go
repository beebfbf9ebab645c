// Package parsing turns source text into syntax trees and extracts
// structural entities from them.
package parsing

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/repolens/repolens/domain/analysis"
)

// Grammar binds a tree-sitter language to the node kinds the extractor
// cares about. Kind names are grammar-specific and come from each
// language's node-types definition.
type Grammar struct {
	language        *sitter.Language
	functionKinds   map[string]struct{}
	classKinds      map[string]struct{}
	identifierKinds map[string]struct{}
	conditionals    map[string]struct{}
	loops           map[string]struct{}
	switches        map[string]struct{}
	catches         map[string]struct{}
	binaryKinds     map[string]struct{}
	logicalOps      map[string]struct{}
	importKinds     map[string]struct{}
	requireNames    map[string]struct{}
}

// Language returns the tree-sitter language.
func (g Grammar) Language() *sitter.Language { return g.language }

// IsFunction reports whether kind is a function-like node.
func (g Grammar) IsFunction(kind string) bool { return contains(g.functionKinds, kind) }

// IsClass reports whether kind is a class-like node.
func (g Grammar) IsClass(kind string) bool { return contains(g.classKinds, kind) }

// IsIdentifier reports whether kind names an identifier node.
func (g Grammar) IsIdentifier(kind string) bool { return contains(g.identifierKinds, kind) }

// IsConditional reports whether kind is an if/ternary node.
func (g Grammar) IsConditional(kind string) bool { return contains(g.conditionals, kind) }

// IsLoop reports whether kind is a loop node.
func (g Grammar) IsLoop(kind string) bool { return contains(g.loops, kind) }

// IsSwitch reports whether kind is a switch/match node.
func (g Grammar) IsSwitch(kind string) bool { return contains(g.switches, kind) }

// IsCatch reports whether kind is a catch/except clause.
func (g Grammar) IsCatch(kind string) bool { return contains(g.catches, kind) }

// IsBinary reports whether kind is a binary-expression node.
func (g Grammar) IsBinary(kind string) bool { return contains(g.binaryKinds, kind) }

// IsLogicalOperator reports whether op is a short-circuit operator token.
func (g Grammar) IsLogicalOperator(op string) bool { return contains(g.logicalOps, op) }

// IsImport reports whether kind is an import statement node.
func (g Grammar) IsImport(kind string) bool { return contains(g.importKinds, kind) }

// IsRequireName reports whether name is a dynamic-import function such as
// require.
func (g Grammar) IsRequireName(name string) bool { return contains(g.requireNames, name) }

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func kindSet(kinds ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

// defaultIdentifiers covers the identifier node kinds shared across the
// C-family grammars.
func defaultIdentifiers() map[string]struct{} {
	return kindSet(
		"identifier",
		"type_identifier",
		"field_identifier",
		"property_identifier",
	)
}

// shortCircuitOps are the operators counted toward complexity in the
// C-family grammars.
func shortCircuitOps() map[string]struct{} {
	return kindSet("&&", "||")
}

// GrammarFor returns the grammar for a language tag. ok is false for tags
// without tree-sitter support.
func GrammarFor(tag analysis.LanguageTag) (Grammar, bool) {
	g, ok := grammars[tag]
	return g, ok
}

// SupportedTags returns the language tags with grammar support.
func SupportedTags() []analysis.LanguageTag {
	tags := make([]analysis.LanguageTag, 0, len(grammars))
	for tag := range grammars {
		tags = append(tags, tag)
	}
	return tags
}

var grammars = map[analysis.LanguageTag]Grammar{
	analysis.LangGo: {
		language:        golang.GetLanguage(),
		functionKinds:   kindSet("function_declaration", "method_declaration", "func_literal"),
		classKinds:      kindSet("type_spec"),
		identifierKinds: defaultIdentifiers(),
		conditionals:    kindSet("if_statement"),
		loops:           kindSet("for_statement"),
		switches:        kindSet("expression_switch_statement", "type_switch_statement", "select_statement"),
		catches:         kindSet(),
		binaryKinds:     kindSet("binary_expression"),
		logicalOps:      shortCircuitOps(),
		importKinds:     kindSet("import_spec"),
		requireNames:    kindSet(),
	},
	analysis.LangJavaScript: javascriptGrammar(javascript.GetLanguage()),
	analysis.LangTypeScript: typescriptGrammar(typescript.GetLanguage()),
	analysis.LangTSX:        typescriptGrammar(tsx.GetLanguage()),
	analysis.LangPython: {
		language:        python.GetLanguage(),
		functionKinds:   kindSet("function_definition", "lambda"),
		classKinds:      kindSet("class_definition"),
		identifierKinds: kindSet("identifier"),
		conditionals:    kindSet("if_statement", "conditional_expression"),
		loops:           kindSet("for_statement", "while_statement"),
		switches:        kindSet("match_statement"),
		catches:         kindSet("except_clause"),
		binaryKinds:     kindSet("boolean_operator"),
		logicalOps:      kindSet("and", "or"),
		importKinds:     kindSet("import_statement", "import_from_statement"),
		requireNames:    kindSet("__import__"),
	},
	analysis.LangRust: {
		language:        rust.GetLanguage(),
		functionKinds:   kindSet("function_item", "closure_expression"),
		classKinds:      kindSet("struct_item", "enum_item", "trait_item"),
		identifierKinds: kindSet("identifier", "type_identifier", "field_identifier"),
		conditionals:    kindSet("if_expression", "if_let_expression"),
		loops:           kindSet("for_expression", "while_expression", "loop_expression"),
		switches:        kindSet("match_expression"),
		catches:         kindSet(),
		binaryKinds:     kindSet("binary_expression"),
		logicalOps:      shortCircuitOps(),
		importKinds:     kindSet("use_declaration"),
		requireNames:    kindSet(),
	},
	analysis.LangJava: {
		language:        java.GetLanguage(),
		functionKinds:   kindSet("method_declaration", "constructor_declaration", "lambda_expression"),
		classKinds:      kindSet("class_declaration", "interface_declaration", "enum_declaration"),
		identifierKinds: kindSet("identifier", "type_identifier"),
		conditionals:    kindSet("if_statement", "ternary_expression"),
		loops:           kindSet("for_statement", "enhanced_for_statement", "while_statement", "do_statement"),
		switches:        kindSet("switch_expression", "switch_statement"),
		catches:         kindSet("catch_clause"),
		binaryKinds:     kindSet("binary_expression"),
		logicalOps:      shortCircuitOps(),
		importKinds:     kindSet("import_declaration"),
		requireNames:    kindSet(),
	},
	analysis.LangC: {
		language:        c.GetLanguage(),
		functionKinds:   kindSet("function_definition"),
		classKinds:      kindSet("struct_specifier", "enum_specifier", "union_specifier"),
		identifierKinds: defaultIdentifiers(),
		conditionals:    kindSet("if_statement", "conditional_expression"),
		loops:           kindSet("for_statement", "while_statement", "do_statement"),
		switches:        kindSet("switch_statement"),
		catches:         kindSet(),
		binaryKinds:     kindSet("binary_expression"),
		logicalOps:      shortCircuitOps(),
		importKinds:     kindSet("preproc_include"),
		requireNames:    kindSet(),
	},
	analysis.LangCPP: {
		language:        cpp.GetLanguage(),
		functionKinds:   kindSet("function_definition", "lambda_expression"),
		classKinds:      kindSet("class_specifier", "struct_specifier", "enum_specifier", "union_specifier"),
		identifierKinds: defaultIdentifiers(),
		conditionals:    kindSet("if_statement", "conditional_expression"),
		loops:           kindSet("for_statement", "for_range_loop", "while_statement", "do_statement"),
		switches:        kindSet("switch_statement"),
		catches:         kindSet("catch_clause"),
		binaryKinds:     kindSet("binary_expression"),
		logicalOps:      shortCircuitOps(),
		importKinds:     kindSet("preproc_include"),
		requireNames:    kindSet(),
	},
}

func javascriptGrammar(lang *sitter.Language) Grammar {
	return Grammar{
		language: lang,
		functionKinds: kindSet(
			"function_declaration",
			"function_expression",
			"function",
			"arrow_function",
			"method_definition",
			"generator_function_declaration",
		),
		classKinds:      kindSet("class_declaration", "class"),
		identifierKinds: kindSet("identifier", "property_identifier", "shorthand_property_identifier"),
		conditionals:    kindSet("if_statement", "ternary_expression"),
		loops:           kindSet("for_statement", "for_in_statement", "while_statement", "do_statement"),
		switches:        kindSet("switch_statement"),
		catches:         kindSet("catch_clause"),
		binaryKinds:     kindSet("binary_expression"),
		logicalOps:      shortCircuitOps(),
		importKinds:     kindSet("import_statement"),
		requireNames:    kindSet("require"),
	}
}

func typescriptGrammar(lang *sitter.Language) Grammar {
	g := javascriptGrammar(lang)
	g.classKinds = kindSet(
		"class_declaration",
		"class",
		"abstract_class_declaration",
		"interface_declaration",
		"enum_declaration",
	)
	g.identifierKinds = kindSet(
		"identifier",
		"type_identifier",
		"property_identifier",
		"shorthand_property_identifier",
	)
	return g
}
