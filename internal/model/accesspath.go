package model

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// PathKind discriminates the variants of AccessPath.
type PathKind int

const (
	// RootPath is the module import itself.
	RootPath PathKind = iota
	// ReturnPath is the return value of a call reached through Base.
	ReturnPath
	// FieldPath is a named or indexed member of Base.
	FieldPath
	// ParamPath is a parameter of a function reached through Base.
	ParamPath
	// InstancePath is an object constructed with new from Base.
	InstancePath
)

// AccessPath describes how a value was reached from the module import.
//
// Every path other than a root wraps exactly one base path. Paths are
// immutable once built; constructors copy their base.
type AccessPath struct {
	Kind PathKind
	// Module is set for RootPath.
	Module string
	// Name is the member name for a named FieldPath.
	Name string
	// Index is the member index for an indexed FieldPath and the parameter
	// index for ParamPath.
	Index int
	// Indexed marks a FieldPath addressed by Index instead of Name.
	Indexed bool
	Base    *AccessPath
}

// Root returns the access path of a module import.
func Root(module string) AccessPath {
	return AccessPath{Kind: RootPath, Module: module}
}

// Return returns the path of the value returned by calling base.
func Return(base AccessPath) AccessPath {
	return AccessPath{Kind: ReturnPath, Base: &base}
}

// Field returns the path of member name of base.
func Field(base AccessPath, name string) AccessPath {
	return AccessPath{Kind: FieldPath, Name: name, Base: &base}
}

// FieldIndex returns the path of the element at idx of base.
func FieldIndex(base AccessPath, idx int) AccessPath {
	return AccessPath{Kind: FieldPath, Index: idx, Indexed: true, Base: &base}
}

// Param returns the path of parameter idx of the function at base.
func Param(base AccessPath, idx int) AccessPath {
	return AccessPath{Kind: ParamPath, Index: idx, Base: &base}
}

// Instance returns the path of an object constructed from base.
func Instance(base AccessPath) AccessPath {
	return AccessPath{Kind: InstancePath, Base: &base}
}

// BasePath strips one layer; it reports false only for a root.
func (p AccessPath) BasePath() (AccessPath, bool) {
	if p.Kind == RootPath || p.Base == nil {
		return AccessPath{}, false
	}

	return *p.Base, true
}

// RootModule returns the module the path starts from.
func (p AccessPath) RootModule() string {
	for p.Kind != RootPath && p.Base != nil {
		p = *p.Base
	}

	return p.Module
}

// Equal reports structural equality.
func (p AccessPath) Equal(other AccessPath) bool {
	return p.String() == other.String()
}

// String encodes the path, e.g. (member "readFile" (module fs)).
func (p AccessPath) String() string {
	var sb strings.Builder
	p.encode(&sb)

	return sb.String()
}

func (p AccessPath) encode(sb *strings.Builder) {
	if p.Kind != RootPath && p.Base == nil {
		sb.WriteString("(module )")

		return
	}

	switch p.Kind {
	case RootPath:
		sb.WriteString("(module ")
		sb.WriteString(quoteModule(p.Module))
		sb.WriteString(")")
	case ReturnPath:
		sb.WriteString("(return ")
		p.Base.encode(sb)
		sb.WriteString(")")
	case FieldPath:
		sb.WriteString("(member ")

		if p.Indexed {
			sb.WriteString(strconv.Itoa(p.Index))
		} else {
			sb.WriteString(strconv.Quote(p.Name))
		}

		sb.WriteString(" ")
		p.Base.encode(sb)
		sb.WriteString(")")
	case ParamPath:
		sb.WriteString("(param ")
		sb.WriteString(strconv.Itoa(p.Index))
		sb.WriteString(" ")
		p.Base.encode(sb)
		sb.WriteString(")")
	case InstancePath:
		sb.WriteString("(new ")
		p.Base.encode(sb)
		sb.WriteString(")")
	}
}

func quoteModule(name string) string {
	if name == "" || strings.IndexFunc(name, func(r rune) bool { return r < utf8.RuneSelf && isDelimiter(byte(r)) }) >= 0 {
		return strconv.Quote(name)
	}

	return name
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func isDelimiter(b byte) bool {
	return isSpace(b) || b == '(' || b == ')' || b == '"'
}

// MarshalText implements encoding.TextMarshaler.
func (p AccessPath) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *AccessPath) UnmarshalText(text []byte) error {
	parsed, err := ParseAccessPath(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}

// ParseAccessPath decodes an encoded access path. Member names may be quoted
// or bare.
func ParseAccessPath(s string) (AccessPath, error) {
	parser := &pathParser{input: s}

	path, err := parser.parsePath()
	if err != nil {
		return AccessPath{}, fmt.Errorf("%w %q: %w", ErrInvalidAccessPath, s, err)
	}

	parser.skipSpace()

	if parser.pos != len(parser.input) {
		return AccessPath{}, fmt.Errorf("%w %q: trailing input at offset %d", ErrInvalidAccessPath, s, parser.pos)
	}

	return path, nil
}

type pathParser struct {
	input string
	pos   int
}

type pathToken struct {
	text   string
	quoted bool
}

func (p *pathParser) skipSpace() {
	for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *pathParser) expect(b byte) error {
	p.skipSpace()

	if p.pos >= len(p.input) || p.input[p.pos] != b {
		return fmt.Errorf("expected %q at offset %d", b, p.pos)
	}

	p.pos++

	return nil
}

func (p *pathParser) token() (pathToken, error) {
	p.skipSpace()

	if p.pos >= len(p.input) {
		return pathToken{}, fmt.Errorf("unexpected end of input")
	}

	if p.input[p.pos] == '"' {
		return p.quotedToken()
	}

	start := p.pos
	for p.pos < len(p.input) && !isDelimiter(p.input[p.pos]) {
		p.pos++
	}

	if start == p.pos {
		return pathToken{}, fmt.Errorf("expected token at offset %d", start)
	}

	return pathToken{text: p.input[start:p.pos]}, nil
}

func (p *pathParser) quotedToken() (pathToken, error) {
	start := p.pos
	p.pos++

	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case '\\':
			p.pos += 2
		case '"':
			p.pos++

			text, err := strconv.Unquote(p.input[start:p.pos])
			if err != nil {
				return pathToken{}, fmt.Errorf("bad quoted string at offset %d: %w", start, err)
			}

			return pathToken{text: text, quoted: true}, nil
		default:
			p.pos++
		}
	}

	return pathToken{}, fmt.Errorf("unterminated string at offset %d", start)
}

func (p *pathParser) integer() (int, error) {
	tok, err := p.token()
	if err != nil {
		return 0, err
	}

	if tok.quoted {
		return 0, fmt.Errorf("expected integer, got string %q", tok.text)
	}

	return strconv.Atoi(tok.text)
}

func (p *pathParser) parsePath() (AccessPath, error) {
	if err := p.expect('('); err != nil {
		return AccessPath{}, err
	}

	tag, err := p.token()
	if err != nil {
		return AccessPath{}, err
	}

	var path AccessPath

	switch tag.text {
	case "module":
		name, err := p.token()
		if err != nil {
			return AccessPath{}, err
		}

		path = Root(name.text)
	case "return":
		base, err := p.parsePath()
		if err != nil {
			return AccessPath{}, err
		}

		path = Return(base)
	case "member":
		path, err = p.parseMember()
		if err != nil {
			return AccessPath{}, err
		}
	case "param":
		idx, err := p.integer()
		if err != nil {
			return AccessPath{}, err
		}

		base, err := p.parsePath()
		if err != nil {
			return AccessPath{}, err
		}

		path = Param(base, idx)
	case "new":
		base, err := p.parsePath()
		if err != nil {
			return AccessPath{}, err
		}

		path = Instance(base)
	default:
		return AccessPath{}, fmt.Errorf("unknown tag %q", tag.text)
	}

	if err := p.expect(')'); err != nil {
		return AccessPath{}, err
	}

	return path, nil
}

func (p *pathParser) parseMember() (AccessPath, error) {
	name, err := p.token()
	if err != nil {
		return AccessPath{}, err
	}

	base, err := p.parsePath()
	if err != nil {
		return AccessPath{}, err
	}

	if !name.quoted {
		if idx, convErr := strconv.Atoi(name.text); convErr == nil {
			return FieldIndex(base, idx), nil
		}
	}

	return Field(base, name.text), nil
}
