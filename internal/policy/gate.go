package policy

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

// Fixed bindings every snippet runs with. df is the injected dataset view,
// answer is the designated result variable.
const (
	DatasetBinding = "df"
	ResultBinding  = "answer"
)

// AllowedImports is the import allowlist for generated snippets: the numeric
// stdlib helpers the sandbox pre-loads. Everything else is rejected before
// execution.
var AllowedImports = map[string]bool{
	"math":    true,
	"sort":    true,
	"strings": true,
}

// builtinNames are the language builtins snippets may reference.
var builtinNames = map[string]bool{
	"bool": true, "byte": true, "float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"rune": true, "string": true, "any": true, "error": true,
	"true": true, "false": true, "nil": true,
	"len": true, "cap": true, "append": true, "copy": true, "delete": true,
	"make": true, "new": true, "min": true, "max": true,
}

// deniedBuiltins are language builtins that abort or escape the analysis
// contract and are rejected by name.
var deniedBuiltins = map[string]bool{
	"panic": true, "recover": true, "print": true, "println": true,
	"close": true, "complex": true, "real": true, "imag": true,
}

// maxMakeSize caps the length and capacity arguments of make. Sizes must be
// integer literals so the bound is checkable before execution; a computed
// size could allocate host memory outside the cell budget, and a huge one
// aborts the process rather than panicking where the sandbox can recover.
const maxMakeSize = 1_000_000

// deniedPackageFuncs are functions of allowlisted packages rejected by name
// because they allocate in proportion to an argument.
var deniedPackageFuncs = map[string]bool{
	"strings.Repeat": true,
}

// Program is the split form of an accepted snippet: its declared imports
// (all allowlisted) and its statement body, ready for the sandbox to
// assemble into an executable unit.
type Program struct {
	Imports []string
	Body    string
}

// Gate statically inspects generated code against the policy. It holds no
// mutable state and is safe for concurrent use across sessions.
type Gate struct{}

// NewGate returns the policy gate.
func NewGate() *Gate { return &Gate{} }

// Inspect parses a snippet and walks its structure against the allowlist.
// Violations are collected exhaustively. The returned Program is non-nil only
// when the verdict allows execution. Same code text, same verdict, always.
func (g *Gate) Inspect(code string) (*Verdict, *Program) {
	verdict := &Verdict{}
	imports, body, headerLines := splitHeader(code)

	importNames := make(map[string]bool, len(imports))
	importPaths := make([]string, 0, len(imports))
	for _, imp := range imports {
		importNames[imp.name] = true
		importPaths = append(importPaths, imp.path)
		if !AllowedImports[imp.path] {
			verdict.Violations = append(verdict.Violations, Violation{
				Kind:    ViolationDisallowedImport,
				Message: fmt.Sprintf("import %q is not on the allowlist (allowed: math, sort, strings)", imp.path),
			})
		}
	}

	src := "package main\n\nfunc analyze() {\n" + body + "\n}\n"
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "snippet.go", src, 0)
	if err != nil {
		verdict.Violations = append(verdict.Violations, Violation{
			Kind:    ViolationParseError,
			Message: fmt.Sprintf("code does not parse: %v", err),
		})
		return verdict, nil
	}

	w := &walker{
		verdict: verdict,
		fset:    fset,
		// body starts at source line 4; header lines were stripped first
		lineOffset: headerLines - 3,
		imports:    importNames,
	}

	var analyzeBody *ast.BlockStmt
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if ok && fd.Name.Name == "analyze" && analyzeBody == nil {
			analyzeBody = fd.Body
			continue
		}
		// A snippet can only reach top level by unbalancing the wrapper
		// braces. Reject whatever it smuggled out.
		verdict.Violations = append(verdict.Violations, Violation{
			Kind:     ViolationDisallowedStatement,
			Location: w.loc(decl.Pos()),
			Message:  "top-level declarations are not permitted",
		})
	}

	if analyzeBody != nil {
		w.push()
		for _, stmt := range analyzeBody.List {
			w.stmt(stmt)
		}
		w.pop()
	}

	verdict.Allowed = len(verdict.Violations) == 0
	if !verdict.Allowed {
		return verdict, nil
	}
	return verdict, &Program{Imports: importPaths, Body: body}
}

// =============================================================================
// HEADER SPLITTING
// =============================================================================
// Models occasionally emit package and import clauses ahead of the statement
// body. Those clauses cannot live inside a function, so they are split off
// line by line before wrapping; the captured import paths go through the
// allowlist above and the rest of the snippet is validated structurally.

type importClause struct {
	name string // local name: alias or last path element
	path string
}

func splitHeader(code string) (imports []importClause, body string, headerLines int) {
	lines := strings.Split(code, "\n")
	inBlock := false

	for i, line := range lines {
		t := strings.TrimSpace(line)

		switch {
		case inBlock:
			headerLines++
			if strings.HasPrefix(t, ")") {
				inBlock = false
				continue
			}
			if imp, ok := parseImportLine(t); ok {
				imports = append(imports, imp)
			}
			continue
		case t == "":
			headerLines++
			continue
		case strings.HasPrefix(t, "package "):
			headerLines++
			continue
		case strings.HasPrefix(t, "import ("):
			headerLines++
			inBlock = true
			continue
		case strings.HasPrefix(t, "import "):
			headerLines++
			if imp, ok := parseImportLine(strings.TrimPrefix(t, "import ")); ok {
				imports = append(imports, imp)
			}
			continue
		}

		body = strings.Join(lines[i:], "\n")
		return imports, body, headerLines
	}

	return imports, "", headerLines
}

func parseImportLine(s string) (importClause, bool) {
	s = strings.TrimSpace(s)
	start := strings.Index(s, `"`)
	end := strings.LastIndex(s, `"`)
	if start == -1 || end <= start {
		return importClause{}, false
	}

	path := s[start+1 : end]
	name := path
	if idx := strings.LastIndex(path, "/"); idx != -1 {
		name = path[idx+1:]
	}
	if alias := strings.TrimSpace(s[:start]); alias != "" {
		name = alias
	}
	return importClause{name: name, path: path}, true
}

// =============================================================================
// STRUCTURAL WALK
// =============================================================================

type walker struct {
	verdict    *Verdict
	fset       *token.FileSet
	lineOffset int
	imports    map[string]bool
	scopes     []map[string]bool
}

func (w *walker) loc(pos token.Pos) string {
	line := w.fset.Position(pos).Line + w.lineOffset
	if line < 1 {
		return ""
	}
	return fmt.Sprintf("line %d", line)
}

func (w *walker) add(kind ViolationKind, pos token.Pos, format string, args ...interface{}) {
	w.verdict.Violations = append(w.verdict.Violations, Violation{
		Kind:     kind,
		Location: w.loc(pos),
		Message:  fmt.Sprintf(format, args...),
	})
}

func (w *walker) push() { w.scopes = append(w.scopes, make(map[string]bool)) }
func (w *walker) pop()  { w.scopes = w.scopes[:len(w.scopes)-1] }

func (w *walker) declare(name string) {
	if len(w.scopes) > 0 {
		w.scopes[len(w.scopes)-1][name] = true
	}
}

func (w *walker) inScope(name string) bool {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if w.scopes[i][name] {
			return true
		}
	}
	return false
}

func (w *walker) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.AssignStmt:
		w.assign(n)
	case *ast.ExprStmt:
		w.expr(n.X)
	case *ast.IncDecStmt:
		w.expr(n.X)
	case *ast.DeclStmt:
		w.decl(n)
	case *ast.BlockStmt:
		w.push()
		for _, inner := range n.List {
			w.stmt(inner)
		}
		w.pop()
	case *ast.IfStmt:
		w.push()
		if n.Init != nil {
			w.stmt(n.Init)
		}
		w.expr(n.Cond)
		w.stmt(n.Body)
		if n.Else != nil {
			w.stmt(n.Else)
		}
		w.pop()
	case *ast.RangeStmt:
		// Ranging over an already-materialized sequence is the only
		// permitted loop form: its iteration count is bounded by data.
		w.push()
		w.expr(n.X)
		w.rangeVar(n.Key, n.Tok)
		w.rangeVar(n.Value, n.Tok)
		w.stmt(n.Body)
		w.pop()
	case *ast.ForStmt:
		w.add(ViolationUnboundedLoop, n.Pos(),
			"for loops must range over a materialized sequence; condition loops have no iteration bound")
		w.push()
		if n.Init != nil {
			w.stmt(n.Init)
		}
		if n.Cond != nil {
			w.expr(n.Cond)
		}
		if n.Post != nil {
			w.stmt(n.Post)
		}
		w.stmt(n.Body)
		w.pop()
	case *ast.SwitchStmt:
		w.push()
		if n.Init != nil {
			w.stmt(n.Init)
		}
		if n.Tag != nil {
			w.expr(n.Tag)
		}
		for _, clause := range n.Body.List {
			cc, ok := clause.(*ast.CaseClause)
			if !ok {
				continue
			}
			w.push()
			for _, e := range cc.List {
				w.expr(e)
			}
			for _, inner := range cc.Body {
				w.stmt(inner)
			}
			w.pop()
		}
		w.pop()
	case *ast.BranchStmt:
		if n.Label != nil || (n.Tok != token.BREAK && n.Tok != token.CONTINUE) {
			w.add(ViolationDisallowedStatement, n.Pos(), "%s is not permitted", n.Tok)
		}
	case *ast.EmptyStmt:
	default:
		w.add(ViolationDisallowedStatement, s.Pos(), "%s is not permitted", stmtName(s))
	}
}

func (w *walker) rangeVar(e ast.Expr, tok token.Token) {
	if e == nil {
		return
	}
	ident, ok := e.(*ast.Ident)
	if !ok {
		w.expr(e)
		return
	}
	if tok == token.DEFINE {
		w.declare(ident.Name)
		return
	}
	w.lhsIdent(ident)
}

func (w *walker) assign(n *ast.AssignStmt) {
	for _, rhs := range n.Rhs {
		w.expr(rhs)
	}
	for _, lhs := range n.Lhs {
		ident, ok := lhs.(*ast.Ident)
		if !ok {
			// Index or selector target; the base expression is validated
			// and mutation can only reach snippet-local values.
			w.expr(lhs)
			continue
		}
		if n.Tok == token.DEFINE {
			switch ident.Name {
			case DatasetBinding:
				w.add(ViolationDisallowedAssignment, ident.Pos(), "cannot rebind the dataset binding %q", DatasetBinding)
			case ResultBinding:
				w.add(ViolationDisallowedAssignment, ident.Pos(), "assign the result with %q = ..., not :=", ResultBinding)
			default:
				w.declare(ident.Name)
			}
			continue
		}
		w.lhsIdent(ident)
	}
}

func (w *walker) lhsIdent(ident *ast.Ident) {
	switch {
	case ident.Name == "_", ident.Name == ResultBinding:
	case ident.Name == DatasetBinding:
		w.add(ViolationDisallowedAssignment, ident.Pos(), "cannot assign to the dataset binding %q", DatasetBinding)
	case w.inScope(ident.Name):
	default:
		w.add(ViolationDisallowedAssignment, ident.Pos(), "assignment to undeclared name %q", ident.Name)
	}
}

func (w *walker) decl(n *ast.DeclStmt) {
	gd, ok := n.Decl.(*ast.GenDecl)
	if !ok || (gd.Tok != token.VAR && gd.Tok != token.CONST) {
		w.add(ViolationDisallowedStatement, n.Pos(), "only var and const declarations are permitted")
		return
	}
	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		if vs.Type != nil {
			w.typeExpr(vs.Type)
		}
		for _, val := range vs.Values {
			w.expr(val)
		}
		for _, name := range vs.Names {
			if name.Name == DatasetBinding || name.Name == ResultBinding {
				w.add(ViolationDisallowedAssignment, name.Pos(), "cannot redeclare %q", name.Name)
				continue
			}
			w.declare(name.Name)
		}
	}
}

func (w *walker) expr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Ident:
		w.ident(n)
	case *ast.BasicLit:
	case *ast.SelectorExpr:
		w.selector(n)
	case *ast.CallExpr:
		w.call(n)
	case *ast.BinaryExpr:
		w.expr(n.X)
		w.expr(n.Y)
	case *ast.UnaryExpr:
		if n.Op == token.ARROW {
			w.add(ViolationDisallowedStatement, n.Pos(), "channel operations are not permitted")
			return
		}
		w.expr(n.X)
	case *ast.ParenExpr:
		w.expr(n.X)
	case *ast.IndexExpr:
		w.expr(n.X)
		w.expr(n.Index)
	case *ast.SliceExpr:
		w.expr(n.X)
		for _, idx := range []ast.Expr{n.Low, n.High, n.Max} {
			if idx != nil {
				w.expr(idx)
			}
		}
	case *ast.CompositeLit:
		if n.Type != nil {
			w.typeExpr(n.Type)
		}
		for _, elt := range n.Elts {
			w.expr(elt)
		}
	case *ast.KeyValueExpr:
		w.expr(n.Key)
		w.expr(n.Value)
	case *ast.StarExpr:
		w.expr(n.X)
	case *ast.FuncLit:
		w.add(ViolationDisallowedStatement, n.Pos(), "function literals are not permitted")
	case *ast.TypeAssertExpr:
		w.add(ViolationDisallowedStatement, n.Pos(), "type assertions are not permitted")
	case *ast.ArrayType, *ast.MapType:
		w.typeExpr(e)
	default:
		w.add(ViolationDisallowedStatement, e.Pos(), "%T expressions are not permitted", e)
	}
}

func (w *walker) ident(n *ast.Ident) {
	name := n.Name
	switch {
	case name == "_":
	case strings.Contains(name, "__"):
		w.add(ViolationDisallowedAttribute, n.Pos(), "name %q reaches for internal members", name)
	case deniedBuiltins[name]:
		w.add(ViolationDisallowedCall, n.Pos(), "%s is not permitted in snippets", name)
	case name == DatasetBinding, name == ResultBinding:
	case builtinNames[name]:
	case w.inScope(name):
	case AllowedImports[name]:
		// pre-loaded helper packages: math, sort, strings
	case w.imports[name]:
		// declared by the snippet; the import path was already checked
	default:
		w.add(ViolationDisallowedName, n.Pos(),
			"name %q is not available (snippets see only %q, %q and their own variables)",
			name, DatasetBinding, ResultBinding)
	}
}

func (w *walker) selector(n *ast.SelectorExpr) {
	if strings.Contains(n.Sel.Name, "__") || strings.HasPrefix(n.Sel.Name, "_") {
		w.add(ViolationDisallowedAttribute, n.Sel.Pos(), "member %q reaches for internal members", n.Sel.Name)
	}
	w.expr(n.X)
}

func (w *walker) call(n *ast.CallExpr) {
	switch fun := n.Fun.(type) {
	case *ast.Ident:
		if deniedBuiltins[fun.Name] {
			w.add(ViolationDisallowedCall, fun.Pos(), "call to %s is not permitted", fun.Name)
		} else {
			if fun.Name == "make" {
				w.makeSizes(n)
			}
			w.expr(n.Fun)
		}
	case *ast.SelectorExpr:
		if pkg, ok := fun.X.(*ast.Ident); ok && deniedPackageFuncs[pkg.Name+"."+fun.Sel.Name] {
			w.add(ViolationDisallowedCall, fun.Pos(),
				"%s.%s is not permitted: its output size is unbounded", pkg.Name, fun.Sel.Name)
		}
		w.expr(n.Fun)
	default:
		w.expr(n.Fun)
	}
	for _, arg := range n.Args {
		w.expr(arg)
	}
}

// makeSizes bounds the length/capacity arguments of a make call.
func (w *walker) makeSizes(n *ast.CallExpr) {
	if len(n.Args) < 2 {
		return
	}
	for _, arg := range n.Args[1:] {
		lit, ok := arg.(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			w.add(ViolationDisallowedCall, arg.Pos(),
				"make sizes must be integer literals of at most %d", maxMakeSize)
			continue
		}
		if v, err := strconv.ParseInt(lit.Value, 0, 64); err != nil || v > maxMakeSize {
			w.add(ViolationDisallowedCall, lit.Pos(),
				"make size %s exceeds the limit of %d", lit.Value, maxMakeSize)
		}
	}
}

func (w *walker) typeExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Ident:
		if !builtinNames[n.Name] {
			w.add(ViolationDisallowedName, n.Pos(), "type %q is not available to snippets", n.Name)
		}
	case *ast.ArrayType:
		if n.Len != nil {
			w.expr(n.Len)
		}
		w.typeExpr(n.Elt)
	case *ast.MapType:
		w.typeExpr(n.Key)
		w.typeExpr(n.Value)
	case *ast.InterfaceType:
		if n.Methods != nil && len(n.Methods.List) > 0 {
			w.add(ViolationDisallowedStatement, n.Pos(), "interface types are not permitted")
		}
	case *ast.StarExpr:
		w.typeExpr(n.X)
	default:
		w.add(ViolationDisallowedStatement, e.Pos(), "%T types are not permitted", e)
	}
}

func stmtName(s ast.Stmt) string {
	switch s.(type) {
	case *ast.ReturnStmt:
		return "return"
	case *ast.GoStmt:
		return "goroutine launch"
	case *ast.DeferStmt:
		return "defer"
	case *ast.SendStmt:
		return "channel send"
	case *ast.SelectStmt:
		return "select"
	case *ast.TypeSwitchStmt:
		return "type switch"
	case *ast.LabeledStmt:
		return "labeled statement"
	default:
		return fmt.Sprintf("%T", s)
	}
}
