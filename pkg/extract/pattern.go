package extract

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/matzehuels/prunepack/pkg/project"
)

// SourceExts are the file extensions scanned by [PatternExtractor].
var SourceExts = []string{".ts", ".tsx", ".mts", ".cts"}

// PatternExtractor scans a unit's TypeScript sources for imports of a shared
// barrel package.
//
// Given a barrel such as "@acme/shared", a specifier below the barrel is a
// deep reference, named imports and re-exports of the barrel itself record
// symbols, and anything that can reach every export marks the whole barrel:
//
//	import { A } from '@acme/shared/dist/types'  // deep reference
//	import { A, B as C } from '@acme/shared'     // barrel symbols A, B
//	export { D } from '@acme/shared'             // barrel symbol D
//	import * as shared from '@acme/shared'       // whole barrel
//	import shared from '@acme/shared'            // whole barrel
//	export * from '@acme/shared'                 // whole barrel
//	import '@acme/shared'                        // whole barrel
//	const s = require('@acme/shared')            // whole barrel
type PatternExtractor struct {
	Barrel      string
	ExcludeDirs []string
	Logger      *log.Logger

	fallback []fallbackPattern
}

type fallbackKind int

const (
	deepRef fallbackKind = iota
	namedRef
	wholeRef
)

// fallbackPattern is a regexp applied to source that tree-sitter could not
// parse. Group 1 of deep and named patterns holds the captured text.
type fallbackPattern struct {
	kind fallbackKind
	re   *regexp.Regexp
}

// NewPatternExtractor compiles the import patterns for barrel. Directories
// in [project.ExcludedDirs] are always skipped; extra adds more.
func NewPatternExtractor(barrel string, extra []string, logger *log.Logger) *PatternExtractor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	q := regexp.QuoteMeta(barrel)
	spec := `['"]` + q + `['"]`
	return &PatternExtractor{
		Barrel:      barrel,
		ExcludeDirs: append(slices.Clone(project.ExcludedDirs), extra...),
		Logger:      logger,
		fallback: []fallbackPattern{
			{deepRef, regexp.MustCompile(`(?:from\s+|import\s*\(\s*|require\s*\(\s*|import\s+)['"](` + q + `/[^'"]+)['"]`)},
			{namedRef, regexp.MustCompile(`(?:import|export)\s+(?:type\s+)?(?:[\w$]+\s*,\s*)?\{([^}]*)\}\s*from\s*` + spec)},
			{wholeRef, regexp.MustCompile(`import\s+(?:type\s+)?[\w$]+\s*(?:,\s*(?:\{[^}]*\}|\*\s*as\s+[\w$]+)\s*)?from\s*` + spec)},
			{wholeRef, regexp.MustCompile(`import\s+\*\s*as\s+[\w$]+\s+from\s*` + spec)},
			{wholeRef, regexp.MustCompile(`export\s+\*(?:\s*as\s+[\w$]+)?\s*from\s*` + spec)},
			{wholeRef, regexp.MustCompile(`(?:import|require)\s*\(\s*` + spec + `\s*\)|import\s+` + spec)},
		},
	}
}

// Fingerprint identifies the barrel and the excluded directories, both of
// which change what a scan of the same tree reports.
func (e *PatternExtractor) Fingerprint() string {
	dirs := slices.Clone(e.ExcludeDirs)
	slices.Sort(dirs)
	return "pattern:" + e.Barrel + ":" + strings.Join(slices.Compact(dirs), ",")
}

// Extract walks the unit tree in sorted order and collects barrel references
// from every TypeScript source. Test files are never packaged, so they are
// not scanned; unreadable files contribute nothing.
func (e *PatternExtractor) Extract(ctx context.Context, unit project.Unit) (*References, error) {
	refs := &References{}
	err := filepath.WalkDir(unit.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == unit.Dir {
				return err
			}
			e.Logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != unit.Dir && slices.Contains(e.ExcludeDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !slices.Contains(SourceExts, filepath.Ext(path)) || isTestFile(d.Name()) {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			e.Logger.Debug("skipping unreadable file", "path", path, "error", err)
			return nil
		}
		e.scan(ctx, src, filepath.Ext(path) == ".tsx", refs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	refs.normalize()
	return refs, nil
}

// Scan extracts references from a single source text.
func (e *PatternExtractor) Scan(ctx context.Context, src []byte, isTSX bool) *References {
	refs := &References{}
	e.scan(ctx, src, isTSX, refs)
	refs.normalize()
	return refs
}

func (e *PatternExtractor) scan(ctx context.Context, src []byte, isTSX bool, refs *References) {
	tree, ok := parse(ctx, src, isTSX)
	if !ok {
		e.scanText(string(src), refs)
		return
	}
	defer tree.Close()
	e.walk(tree.RootNode(), src, refs)
}

// scanText applies the fallback patterns to the raw text.
func (e *PatternExtractor) scanText(text string, refs *References) {
	for _, p := range e.fallback {
		switch p.kind {
		case deepRef:
			for _, m := range p.re.FindAllStringSubmatch(text, -1) {
				refs.Deep = append(refs.Deep, m[1])
			}
		case namedRef:
			for _, m := range p.re.FindAllStringSubmatch(text, -1) {
				refs.Symbols = append(refs.Symbols, ParseSymbols(m[1])...)
			}
		case wholeRef:
			if p.re.MatchString(text) {
				refs.WholeBarrel = true
			}
		}
	}
}

// walk visits every node, so require and dynamic import calls are found at
// any depth, while import and export statements are handled where they stand.
func (e *PatternExtractor) walk(n *sitter.Node, src []byte, refs *References) {
	switch n.Type() {
	case "import_statement":
		e.importStatement(n, src, refs)
		return
	case "export_statement":
		if n.ChildByFieldName("source") != nil {
			e.exportStatement(n, src, refs)
			return
		}
	case "call_expression":
		e.call(n, src, refs)
	case "comment", "string", "template_string":
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child != nil {
			e.walk(child, src, refs)
		}
	}
}

// classify reports whether spec is the barrel itself or a path below it,
// recording deep references as it goes.
func (e *PatternExtractor) classify(spec string, refs *References) (barrel bool) {
	if spec == e.Barrel {
		return true
	}
	if strings.HasPrefix(spec, e.Barrel+"/") {
		refs.Deep = append(refs.Deep, spec)
	}
	return false
}

func (e *PatternExtractor) importStatement(n *sitter.Node, src []byte, refs *References) {
	var clause, req *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "import_clause":
			clause = c
		case "import_require_clause":
			req = c
		}
	}
	if req != nil {
		// import x = require('...')
		if e.classify(stringValue(firstString(req), src), refs) {
			refs.WholeBarrel = true
		}
		return
	}
	source := n.ChildByFieldName("source")
	if source == nil || !e.classify(stringValue(source, src), refs) {
		return
	}
	if clause == nil {
		// Side-effect import: the barrel's module bodies all run.
		refs.WholeBarrel = true
		return
	}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "named_imports":
			refs.Symbols = append(refs.Symbols, specifierNames(c, "import_specifier", src)...)
		default:
			// Default and namespace imports expose every export.
			refs.WholeBarrel = true
		}
	}
}

func (e *PatternExtractor) exportStatement(n *sitter.Node, src []byte, refs *References) {
	if !e.classify(stringValue(n.ChildByFieldName("source"), src), refs) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() == "export_clause" {
			refs.Symbols = append(refs.Symbols, specifierNames(c, "export_specifier", src)...)
			return
		}
	}
	// export * and export * as ns
	refs.WholeBarrel = true
}

// call handles require('x') and import('x') with a literal specifier.
func (e *PatternExtractor) call(n *sitter.Node, src []byte, refs *References) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil || args == nil || args.NamedChildCount() != 1 {
		return
	}
	if fn.Type() != "import" && !(fn.Type() == "identifier" && fn.Content(src) == "require") {
		return
	}
	arg := args.NamedChild(0)
	if arg == nil || arg.Type() != "string" {
		return
	}
	if e.classify(stringValue(arg, src), refs) {
		refs.WholeBarrel = true
	}
}

func specifierNames(list *sitter.Node, kind string, src []byte) []string {
	var out []string
	for i := 0; i < int(list.NamedChildCount()); i++ {
		s := list.NamedChild(i)
		if s == nil || s.Type() != kind {
			continue
		}
		name := s.ChildByFieldName("name")
		if name == nil {
			continue
		}
		sym := name.Content(src)
		if name.Type() == "string" {
			sym = stringValue(name, src)
		}
		out = append(out, sym)
	}
	return out
}

func firstString(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() == "string" {
			return c
		}
	}
	return nil
}

func stringValue(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return strings.Trim(n.Content(src), "'\"`")
}

func isTestFile(name string) bool {
	for _, g := range project.TypeScriptTestGlobs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}

// ParseSymbols splits the body of a named import clause into imported names.
// Aliases resolve to the original name and inline type modifiers are dropped:
// "A, B as C, type D" yields [A B D].
func ParseSymbols(clause string) []string {
	var out []string
	for _, part := range strings.Split(clause, ",") {
		sym := strings.TrimSpace(part)
		if before, _, ok := strings.Cut(sym, " as "); ok {
			sym = strings.TrimSpace(before)
		}
		if rest, ok := strings.CutPrefix(sym, "type "); ok {
			sym = strings.TrimSpace(rest)
		}
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// parse returns the syntax tree of src, or false when the source does not
// parse cleanly and callers should scan the raw text instead.
func parse(ctx context.Context, src []byte, isTSX bool) (*sitter.Tree, bool) {
	lang := typescript.GetLanguage()
	if isTSX {
		lang = tsx.GetLanguage()
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return nil, false
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return nil, false
	}
	return tree, true
}
