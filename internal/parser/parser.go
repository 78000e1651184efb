package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// Parser reads the searchData literals a documentation generator emits
type Parser struct {
	// VarName, when set, must match the declared variable. Empty accepts any.
	VarName string
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// ParseFile parses one search index file. The category and section are
// taken from the file name (functions_6.js -> functions, 6).
func (p *Parser) ParseFile(filePath string) (*types.ParseResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return p.Parse(f, filePath)
}

// Parse parses a searchData literal read from r. name is used for the
// category, the section and error positions.
//
// Malformed syntax fails the whole parse. Rows that are well-formed
// JavaScript but do not have the entry shape are recorded in
// ParseResult.Errors and skipped.
func (p *Parser) Parse(r io.Reader, name string) (*types.ParseResult, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	category, section, _ := SplitFileName(filepath.Base(name))
	result := &types.ParseResult{
		Category: category,
		Section:  section,
		Entries:  make([]types.SearchEntry, 0),
	}

	root, err := p.parseDeclaration(newLexer(name, string(content)))
	if err != nil {
		return nil, err
	}

	if root.kind != nodeList {
		return nil, &SyntaxError{File: name, Line: root.line, Column: root.col, Msg: "search data must be an array"}
	}

	for _, row := range root.list {
		entry, err := toEntry(row)
		if err != nil {
			result.AddError(name, row.line, row.col, err.Error())
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

type nodeKind int

const (
	nodeString nodeKind = iota
	nodeNumber
	nodeList
)

func (k nodeKind) String() string {
	switch k {
	case nodeString:
		return "string"
	case nodeNumber:
		return "number"
	default:
		return "array"
	}
}

// node is one value of the parsed literal
type node struct {
	kind nodeKind
	str  string
	num  int
	list []*node
	line int
	col  int
}

// parseDeclaration reads `[var|let|const] name = <array> [;]`. A bare array
// literal is accepted too.
func (p *Parser) parseDeclaration(lx *lexer) (*node, error) {
	tok, err := lx.next()
	if err != nil {
		return nil, err
	}

	if tok.kind == tokIdent {
		if tok.text == "var" || tok.text == "let" || tok.text == "const" {
			if tok, err = lx.next(); err != nil {
				return nil, err
			}
			if tok.kind != tokIdent {
				return nil, lx.errorf(tok.line, tok.col, "expected variable name, found %s", tok.kind)
			}
		}
		if p.VarName != "" && tok.text != p.VarName {
			return nil, lx.errorf(tok.line, tok.col, "expected variable %q, found %q", p.VarName, tok.text)
		}
		eq, err := lx.next()
		if err != nil {
			return nil, err
		}
		if eq.kind != tokEquals {
			return nil, lx.errorf(eq.line, eq.col, "expected '=', found %s", eq.kind)
		}
		if tok, err = lx.next(); err != nil {
			return nil, err
		}
	}

	value, err := parseValue(lx, tok)
	if err != nil {
		return nil, err
	}

	end, err := lx.next()
	if err != nil {
		return nil, err
	}
	if end.kind == tokSemicolon {
		if end, err = lx.next(); err != nil {
			return nil, err
		}
	}
	if end.kind != tokEOF {
		return nil, lx.errorf(end.line, end.col, "unexpected %s after search data", end.kind)
	}

	return value, nil
}

func parseValue(lx *lexer, tok token) (*node, error) {
	switch tok.kind {
	case tokString:
		return &node{kind: nodeString, str: tok.text, line: tok.line, col: tok.col}, nil
	case tokNumber:
		n, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, lx.errorf(tok.line, tok.col, "invalid number %q", tok.text)
		}
		return &node{kind: nodeNumber, num: n, line: tok.line, col: tok.col}, nil
	case tokLBrack:
		return parseList(lx, tok)
	default:
		return nil, lx.errorf(tok.line, tok.col, "unexpected %s", tok.kind)
	}
}

func parseList(lx *lexer, open token) (*node, error) {
	list := &node{kind: nodeList, line: open.line, col: open.col}

	tok, err := lx.next()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokRBrack {
		return list, nil
	}

	for {
		elem, err := parseValue(lx, tok)
		if err != nil {
			return nil, err
		}
		list.list = append(list.list, elem)

		sep, err := lx.next()
		if err != nil {
			return nil, err
		}
		switch sep.kind {
		case tokRBrack:
			return list, nil
		case tokComma:
			if tok, err = lx.next(); err != nil {
				return nil, err
			}
			// Trailing comma
			if tok.kind == tokRBrack {
				return list, nil
			}
		default:
			return nil, lx.errorf(sep.line, sep.col, "expected ',' or ']', found %s", sep.kind)
		}
	}
}

// toEntry converts ['key',['Name',['url',1,'owner'],...]] to an entry
func toEntry(row *node) (types.SearchEntry, error) {
	var entry types.SearchEntry

	if row.kind != nodeList || len(row.list) != 2 {
		return entry, fmt.Errorf("entry must be a [key, [name, occurrences...]] pair")
	}

	key, body := row.list[0], row.list[1]
	if key.kind != nodeString {
		return entry, fmt.Errorf("entry key must be a string, found %s", key.kind)
	}
	entry.Key = key.str

	if body.kind != nodeList || len(body.list) == 0 {
		return entry, fmt.Errorf("%s: entry body must be a non-empty array", entry.Key)
	}
	if body.list[0].kind != nodeString {
		return entry, fmt.Errorf("%s: display name must be a string, found %s", entry.Key, body.list[0].kind)
	}
	entry.DisplayName = body.list[0].str

	entry.Occurrences = make([]types.Occurrence, 0, len(body.list)-1)
	for i, elem := range body.list[1:] {
		occ, err := toOccurrence(elem)
		if err != nil {
			return entry, fmt.Errorf("%s: occurrence %d: %w", entry.Key, i, err)
		}
		entry.Occurrences = append(entry.Occurrences, occ)
	}

	if err := entry.Validate(); err != nil {
		return entry, err
	}

	return entry, nil
}

// toOccurrence converts ['url',flag,'owner'] or ['url',flag]
func toOccurrence(n *node) (types.Occurrence, error) {
	var occ types.Occurrence

	if n.kind != nodeList || len(n.list) < 2 || len(n.list) > 3 {
		return occ, fmt.Errorf("occurrence must be [anchor, flag, owner]")
	}

	if n.list[0].kind != nodeString {
		return occ, fmt.Errorf("anchor must be a string, found %s", n.list[0].kind)
	}
	occ.Anchor = n.list[0].str

	if n.list[1].kind != nodeNumber {
		return occ, fmt.Errorf("link flag must be a number, found %s", n.list[1].kind)
	}
	occ.LinkFlag = n.list[1].num

	if len(n.list) == 3 {
		if n.list[2].kind != nodeString {
			return occ, fmt.Errorf("owner must be a string, found %s", n.list[2].kind)
		}
		occ.Owner = n.list[2].str
	}

	return occ, nil
}
