// internal/input/parser.go
package input

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
)

const (
	filePrefix = "package repl\n"
	stmtPrefix = "package repl\nfunc _() {\n"
	stmtSuffix = "\n}\n"
)

// Parse classifies one round of raw text as a command, a program fragment,
// empty input, a request for more lines, or a parse error.
func Parse(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Type: ResultEmpty}
	}
	if strings.HasPrefix(trimmed, ":") {
		return ParseCommand(strings.TrimPrefix(trimmed, ":"))
	}

	attrs, rest := splitAttributes(text)
	if strings.TrimSpace(rest) == "" {
		return program(&Input{Attributes: attrs})
	}

	var errs []error

	if in, err := parseDecls(rest); err == nil {
		in.Attributes = attrs
		return program(in)
	} else {
		errs = append(errs, err)
	}

	if in, err := parseStmts(rest); err == nil {
		in.Attributes = attrs
		return program(in)
	} else {
		errs = append(errs, err)
	}

	if in, err := parseMixed(rest); err == nil {
		in.Attributes = attrs
		return program(in)
	}

	if !balanced(rest) || anyAtEOF(errs) {
		return Result{Type: ResultMore}
	}
	return parseError(firstMessage(errs))
}

// ParseCommand parses command text with the leading `:` already removed.
func ParseCommand(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return parseError("expected command name")
	}
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		args := strings.TrimSpace(text[i:])
		return command(text[:i], args, args != "")
	}
	return command(text, "", false)
}

// splitAttributes peels leading compiler directive lines off the round.
func splitAttributes(text string) (attrs []string, rest string) {
	lines := strings.Split(text, "\n")
	i := 0
	for ; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == "" {
			continue
		}
		if strings.HasPrefix(t, "//go:") {
			attrs = append(attrs, t)
			continue
		}
		break
	}
	return attrs, strings.Join(lines[i:], "\n")
}

// parseDecls reads the fragment as a sequence of top-level declarations.
func parseDecls(src string) (*Input, error) {
	fset := token.NewFileSet()
	wrapped := filePrefix + src
	f, err := parser.ParseFile(fset, "round", wrapped, 0)
	if err != nil {
		return nil, err
	}
	in := &Input{}
	for _, decl := range f.Decls {
		if g, ok := decl.(*ast.GenDecl); ok && g.Tok == token.IMPORT {
			for _, spec := range g.Specs {
				imp := spec.(*ast.ImportSpec)
				in.ViewItems = append(in.ViewItems, ViewItem{
					Kind: importKind(imp),
					Text: renderImport(imp),
				})
			}
			continue
		}
		in.Items = append(in.Items, sliceText(fset, wrapped, decl.Pos(), decl.End()))
	}
	return in, nil
}

// parseStmts reads the fragment as a statement list.
func parseStmts(src string) (*Input, error) {
	fset := token.NewFileSet()
	wrapped := stmtPrefix + src + stmtSuffix
	f, err := parser.ParseFile(fset, "round", wrapped, 0)
	if err != nil {
		return nil, err
	}
	body := f.Decls[0].(*ast.FuncDecl).Body
	in := &Input{}
	var last ast.Stmt
	for _, stmt := range body.List {
		in.Statements = append(in.Statements, sliceText(fset, wrapped, stmt.Pos(), stmt.End()))
		last = stmt
	}
	if _, ok := last.(*ast.ExprStmt); ok && !hasTerminator(src) {
		in.LastExpr = true
	}
	return in, nil
}

// parseMixed handles rounds that interleave declarations and statements,
// e.g. a func definition followed by a call to it. Chunks are split at
// top-level statement boundaries and routed individually.
func parseMixed(src string) (*Input, error) {
	chunks := splitChunks(src)
	in := &Input{}
	var stmtChunks []string
	sawItem := false
	for _, c := range chunks {
		t := strings.TrimSpace(c)
		if t == "" {
			continue
		}
		switch {
		case strings.HasPrefix(t, "import"):
			sub, err := parseDecls(t)
			if err != nil {
				return nil, err
			}
			in.ViewItems = append(in.ViewItems, sub.ViewItems...)
			sawItem = true
		case isNamedFunc(t) || strings.HasPrefix(t, "type "):
			sub, err := parseDecls(t)
			if err != nil {
				return nil, err
			}
			in.Items = append(in.Items, sub.Items...)
			sawItem = true
		default:
			stmtChunks = append(stmtChunks, t)
		}
	}
	if !sawItem {
		// Nothing parseStmts would not already have accepted.
		return nil, &parseMixedErr{}
	}
	if len(stmtChunks) > 0 {
		sub, err := parseStmts(strings.Join(stmtChunks, "\n"))
		if err != nil {
			return nil, err
		}
		in.Statements = sub.Statements
		in.LastExpr = sub.LastExpr
	}
	return in, nil
}

type parseMixedErr struct{}

func (*parseMixedErr) Error() string { return "no top-level declarations" }

// isNamedFunc distinguishes a func declaration from a func literal
// expression statement like `func() {...}()`.
func isNamedFunc(t string) bool {
	if !strings.HasPrefix(t, "func") {
		return false
	}
	rest := strings.TrimLeft(t[len("func"):], " \t")
	return rest != "" && rest[0] != '('
}

// splitChunks divides the fragment at depth-zero statement boundaries.
func splitChunks(src string) []string {
	var s scanner.Scanner
	fset := token.NewFileSet()
	file := fset.AddFile("round", fset.Base(), len(src))
	s.Init(file, []byte(src), func(token.Position, string) {}, 0)

	depth := 0
	start := 0
	var chunks []string
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		off := fset.Position(pos).Offset
		switch tok {
		case token.LBRACE, token.LPAREN, token.LBRACK:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACK:
			depth--
		case token.SEMICOLON:
			if depth == 0 {
				end := off
				if lit == ";" {
					end = off + 1
				}
				chunks = append(chunks, src[start:end])
				start = end
			}
		}
	}
	if start < len(src) {
		chunks = append(chunks, src[start:])
	}
	return chunks
}

// balanced reports whether every bracket pair and literal in the fragment
// is closed. Unbalanced input means the round needs more lines.
func balanced(src string) bool {
	var s scanner.Scanner
	fset := token.NewFileSet()
	file := fset.AddFile("round", fset.Base(), len(src))
	unterminated := false
	s.Init(file, []byte(src), func(_ token.Position, msg string) {
		if strings.Contains(msg, "not terminated") {
			unterminated = true
		}
	}, 0)

	depth := 0
	for {
		_, tok, _ := s.Scan()
		if tok == token.EOF {
			break
		}
		switch tok {
		case token.LBRACE, token.LPAREN, token.LBRACK:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACK:
			depth--
		}
	}
	return depth <= 0 && !unterminated
}

// anyAtEOF reports whether any parse attempt failed at end of input,
// another signal that more lines may complete the round.
func anyAtEOF(errs []error) bool {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
			for _, e := range list {
				if strings.Contains(e.Msg, "EOF") {
					return true
				}
			}
			continue
		}
		if strings.Contains(err.Error(), "EOF") {
			return true
		}
	}
	return false
}

func firstMessage(errs []error) string {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
			return list[0].Msg
		}
		return err.Error()
	}
	return ""
}

// hasTerminator reports whether the user ended the fragment with an
// explicit `;`, marking the final statement as side-effecting only.
func hasTerminator(src string) bool {
	return strings.HasSuffix(strings.TrimSpace(src), ";")
}

func importKind(imp *ast.ImportSpec) ViewKind {
	path := strings.Trim(imp.Path.Value, `"`)
	first := path
	if i := strings.Index(path, "/"); i >= 0 {
		first = path[:i]
	}
	if strings.Contains(first, ".") {
		return KindExtern
	}
	return KindUse
}

func renderImport(imp *ast.ImportSpec) string {
	if imp.Name != nil {
		return "import " + imp.Name.Name + " " + imp.Path.Value
	}
	return "import " + imp.Path.Value
}

func sliceText(fset *token.FileSet, src string, from, to token.Pos) string {
	return src[fset.Position(from).Offset:fset.Position(to).Offset]
}
