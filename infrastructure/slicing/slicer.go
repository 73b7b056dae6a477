package slicing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kodit-ai/kodit/domain/snippet"
)

// Result is the outcome of slicing one source file. A file that cannot be
// parsed yields no snippets and Unparseable set, never an error.
type Result struct {
	Snippets    []string
	Unparseable bool
}

// Slicer extracts one snippet per function or method definition. Each
// snippet carries the file's imports, the header lines of enclosing classes
// and functions, and the definition itself, in original line order.
type Slicer struct{}

// NewSlicer creates a Slicer.
func NewSlicer() *Slicer {
	return &Slicer{}
}

// Extract slices source written in the given language. Snippet order is
// deterministic: definitions appear in source order.
func (s *Slicer) Extract(ctx context.Context, source []byte, language snippet.Language) (Result, error) {
	g, ok := grammars[language]
	if !ok {
		return Result{}, fmt.Errorf("no grammar for language %s", language)
	}

	root, err := parse(ctx, source, g.language)
	if err != nil || root == nil || root.HasError() {
		if g.fallback != nil {
			root, err = parse(ctx, source, g.fallback)
		}
		if err != nil || root == nil || root.HasError() {
			return Result{Unparseable: true}, nil
		}
	}

	lines := strings.Split(string(source), "\n")
	importLines := s.topLevelImportLines(root, g)

	targets := collectNodes(root, g.isFunction)
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].StartByte() < targets[j].StartByte()
	})

	snippets := make([]string, 0, len(targets))
	for _, target := range targets {
		include := make(map[uint32]struct{}, len(importLines))
		for _, line := range importLines {
			include[line] = struct{}{}
		}
		for _, line := range ancestorHeaderLines(target, g) {
			include[line] = struct{}{}
		}
		addRange(include, target.StartPoint().Row, target.EndPoint().Row)

		snippets = append(snippets, renderLines(lines, include))
	}

	return Result{Snippets: snippets}, nil
}

func parse(ctx context.Context, source []byte, lang *sitter.Language) (*sitter.Node, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	return tree.RootNode(), nil
}

// topLevelImportLines returns the line numbers of import statements that sit
// directly under the file root.
func (s *Slicer) topLevelImportLines(root *sitter.Node, g grammar) []uint32 {
	var lines []uint32
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil || !g.isImport(child.Type()) {
			continue
		}
		for row := child.StartPoint().Row; row <= child.EndPoint().Row; row++ {
			lines = append(lines, row)
		}
	}
	return lines
}

// ancestorHeaderLines collects the header lines of every class-like or
// function ancestor of the target: the lines from the ancestor's start up to
// where its body begins.
func ancestorHeaderLines(target *sitter.Node, g grammar) []uint32 {
	var lines []uint32
	for node := target.Parent(); node != nil; node = node.Parent() {
		t := node.Type()
		if !g.isClass(t) && !g.isFunction(t) {
			continue
		}
		start := node.StartPoint().Row
		end := start
		if body := node.ChildByFieldName("body"); body != nil && body.StartPoint().Row > start {
			end = body.StartPoint().Row - 1
		}
		for row := start; row <= end; row++ {
			lines = append(lines, row)
		}
	}
	return lines
}

func collectNodes(root *sitter.Node, match func(string) bool) []*sitter.Node {
	var nodes []*sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if match(n.Type()) {
			nodes = append(nodes, n)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(root)
	return nodes
}

func addRange(set map[uint32]struct{}, start, end uint32) {
	for row := start; row <= end; row++ {
		set[row] = struct{}{}
	}
}

func renderLines(lines []string, include map[uint32]struct{}) string {
	rows := make([]int, 0, len(include))
	for row := range include {
		if int(row) < len(lines) {
			rows = append(rows, int(row))
		}
	}
	sort.Ints(rows)

	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, lines[row])
	}
	return strings.Join(parts, "\n")
}
