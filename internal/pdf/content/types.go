package content

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ObjectType represents the type of a content stream operand
type ObjectType int

const (
	TypeNull ObjectType = iota
	TypeBool
	TypeNumber
	TypeString
	TypeName
	TypeArray
	TypeDictionary
)

func (t ObjectType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeName:
		return "name"
	case TypeArray:
		return "array"
	case TypeDictionary:
		return "dictionary"
	default:
		return "unknown"
	}
}

// Object is the base interface for all operand objects.
// String returns the object in content stream syntax.
type Object interface {
	Type() ObjectType
	String() string
}

// Null represents the null operand
type Null struct{}

func (n Null) Type() ObjectType { return TypeNull }
func (n Null) String() string   { return "null" }

// Bool represents a boolean operand
type Bool struct {
	Value bool
}

func (b Bool) Type() ObjectType { return TypeBool }
func (b Bool) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// Number represents an integer or real operand
type Number struct {
	Value   float64
	Integer bool
}

// Int creates an integer operand
func Int(v int64) Number { return Number{Value: float64(v), Integer: true} }

// Real creates a real operand
func Real(v float64) Number { return Number{Value: v} }

func (n Number) Type() ObjectType { return TypeNumber }
func (n Number) String() string {
	if n.Integer {
		return strconv.FormatInt(int64(n.Value), 10)
	}
	s := strconv.FormatFloat(n.Value, 'f', 5, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" || s == "-0" {
		return "0"
	}
	return s
}

// String represents a literal or hex string operand. Value holds the decoded bytes.
type String struct {
	Value []byte
	IsHex bool
}

func (s String) Type() ObjectType { return TypeString }
func (s String) String() string {
	if s.IsHex {
		return "<" + fmt.Sprintf("%X", s.Value) + ">"
	}
	return "(" + escapeLiteral(s.Value) + ")"
}

// Name represents a name operand without its leading solidus
type Name struct {
	Value string
}

func (n Name) Type() ObjectType { return TypeName }
func (n Name) String() string   { return "/" + escapeName(n.Value) }

// Array represents an array operand
type Array struct {
	Elements []Object
}

func (a Array) Type() ObjectType { return TypeArray }
func (a Array) String() string {
	parts := make([]string, 0, len(a.Elements))
	for _, elem := range a.Elements {
		parts = append(parts, elem.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Len returns the number of elements
func (a Array) Len() int {
	return len(a.Elements)
}

// Dictionary represents an inline dictionary operand (BDC properties, inline image parameters)
type Dictionary struct {
	Keys   []string // Maintains insertion order
	Values map[string]Object
}

// NewDictionary creates an empty dictionary
func NewDictionary() *Dictionary {
	return &Dictionary{
		Keys:   make([]string, 0),
		Values: make(map[string]Object),
	}
}

func (d *Dictionary) Type() ObjectType { return TypeDictionary }
func (d *Dictionary) String() string {
	keys := d.Keys
	if len(keys) != len(d.Values) {
		keys = make([]string, 0, len(d.Values))
		for k := range d.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, Name{Value: key}.String()+" "+d.Values[key].String())
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Get returns the value for key or Null
func (d *Dictionary) Get(key string) Object {
	if obj, exists := d.Values[key]; exists {
		return obj
	}
	return Null{}
}

// Set adds or replaces a value
func (d *Dictionary) Set(key string, value Object) {
	if _, exists := d.Values[key]; !exists {
		d.Keys = append(d.Keys, key)
	}
	d.Values[key] = value
}

// Has reports whether key is present
func (d *Dictionary) Has(key string) bool {
	_, exists := d.Values[key]
	return exists
}

// Len returns the number of entries
func (d *Dictionary) Len() int {
	return len(d.Keys)
}

// GetInt returns an integer entry or 0
func (d *Dictionary) GetInt(key string) int64 {
	if n, ok := d.Get(key).(Number); ok {
		return int64(n.Value)
	}
	return 0
}

// GetName returns a name entry or ""
func (d *Dictionary) GetName(key string) string {
	if n, ok := d.Get(key).(Name); ok {
		return n.Value
	}
	return ""
}

// Token represents a lexical token in a content stream
type Token struct {
	Type  TokenType
	Value string
	Pos   int64 // Position in stream
}

// TokenType represents the type of a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenNumber
	TokenString
	TokenHexString
	TokenName
	TokenKeyword
	TokenDelimiter
	TokenArrayStart // [
	TokenArrayEnd   // ]
	TokenDictStart  // <<
	TokenDictEnd    // >>
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "ERROR"
	case TokenNumber:
		return "NUMBER"
	case TokenString:
		return "STRING"
	case TokenHexString:
		return "HEXSTRING"
	case TokenName:
		return "NAME"
	case TokenKeyword:
		return "KEYWORD"
	case TokenDelimiter:
		return "DELIMITER"
	case TokenArrayStart:
		return "ARRAY_START"
	case TokenArrayEnd:
		return "ARRAY_END"
	case TokenDictStart:
		return "DICT_START"
	case TokenDictEnd:
		return "DICT_END"
	default:
		return "UNKNOWN"
	}
}

// ParseError reports malformed content stream syntax
type ParseError struct {
	Message  string
	Position int64
}

func (e *ParseError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("content stream parse error at position %d: %s", e.Position, e.Message)
	}
	return fmt.Sprintf("content stream parse error: %s", e.Message)
}

// NewParseError creates a ParseError
func NewParseError(msg string, pos int64) *ParseError {
	return &ParseError{
		Message:  msg,
		Position: pos,
	}
}

const (
	// PDF whitespace characters
	NullChar           = '\000'
	TabChar            = '\t'
	LineFeedChar       = '\n'
	FormFeedChar       = '\f'
	CarriageReturnChar = '\r'
	SpaceChar          = ' '

	// PDF delimiters
	LeftParen   = '('
	RightParen  = ')'
	LeftAngle   = '<'
	RightAngle  = '>'
	LeftSquare  = '['
	RightSquare = ']'
	LeftCurly   = '{'
	RightCurly  = '}'
	Solidus     = '/'
	PercentSign = '%'
)

// IsWhitespace checks if a character is PDF whitespace
func IsWhitespace(ch byte) bool {
	return ch == NullChar || ch == TabChar || ch == LineFeedChar ||
		ch == FormFeedChar || ch == CarriageReturnChar || ch == SpaceChar
}

// IsDelimiter checks if a character is a PDF delimiter
func IsDelimiter(ch byte) bool {
	return ch == LeftParen || ch == RightParen || ch == LeftAngle || ch == RightAngle ||
		ch == LeftSquare || ch == RightSquare || ch == LeftCurly || ch == RightCurly ||
		ch == Solidus || ch == PercentSign
}

// IsRegular checks if a character is a regular character (not whitespace or delimiter)
func IsRegular(ch byte) bool {
	return !IsWhitespace(ch) && !IsDelimiter(ch)
}

func escapeLiteral(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch c {
		case '(', ')', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(&sb, "\\%03o", c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	return sb.String()
}

func escapeName(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '!' || c > '~' || c == '#' || IsDelimiter(c) {
			fmt.Fprintf(&sb, "#%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
