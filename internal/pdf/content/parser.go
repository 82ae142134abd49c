package content

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Operation is a single content stream operator with the operands preceding it
type Operation struct {
	Operator string
	Operands []Object
	// Data holds the raw samples of an inline image. It is only set for BI
	// operations, whose single operand is the image parameter dictionary.
	Data []byte
}

// Op is a convenience constructor for an Operation
func Op(operator string, operands ...Object) Operation {
	return Operation{Operator: operator, Operands: operands}
}

func (o Operation) String() string {
	var buf bytes.Buffer
	_ = writeOperation(&buf, o)
	return strings.TrimRight(buf.String(), "\n")
}

// Number returns operand i as a float, or 0 when it is missing or not numeric
func (o Operation) Number(i int) float64 {
	if i < 0 || i >= len(o.Operands) {
		return 0
	}
	if n, ok := o.Operands[i].(Number); ok {
		return n.Value
	}
	return 0
}

// Name returns operand i as a name, or "" when it is missing or not a name
func (o Operation) Name(i int) string {
	if i < 0 || i >= len(o.Operands) {
		return ""
	}
	if n, ok := o.Operands[i].(Name); ok {
		return n.Value
	}
	return ""
}

// Parser turns content stream bytes into operations
type Parser struct {
	lexer    *Lexer
	operands []Object
}

// NewParser creates a parser over data
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(bytes.NewReader(data))}
}

// Parse parses a complete content stream
func Parse(data []byte) ([]Operation, error) {
	return NewParser(data).Parse()
}

// Parse returns all operations in stream order. Operands left on the stack
// at the end of the stream are discarded.
func (p *Parser) Parse() ([]Operation, error) {
	ops := make([]Operation, 0, 64)

	for {
		token, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}

		switch token.Type {
		case TokenEOF:
			return ops, nil
		case TokenKeyword:
			switch token.Value {
			case "true", "false", "null":
				obj, _ := p.keywordObject(token)
				p.operands = append(p.operands, obj)
				continue
			case "BI":
				op, err := p.parseInlineImage(token)
				if err != nil {
					return nil, err
				}
				ops = append(ops, op)
				p.operands = nil
				continue
			}
			ops = append(ops, Operation{Operator: token.Value, Operands: p.operands})
			p.operands = nil
		default:
			obj, err := p.objectFromToken(token)
			if err != nil {
				return nil, err
			}
			p.operands = append(p.operands, obj)
		}
	}
}

// parseInlineImage reads the BI parameter dictionary, the ID keyword and the sample data
func (p *Parser) parseInlineImage(start Token) (Operation, error) {
	params := NewDictionary()

	for {
		token, err := p.lexer.NextToken()
		if err != nil {
			return Operation{}, err
		}

		if token.Type == TokenKeyword && token.Value == "ID" {
			break
		}
		if token.Type == TokenEOF {
			return Operation{}, NewParseError("inline image without ID", start.Pos)
		}
		if token.Type != TokenName {
			return Operation{}, NewParseError("expected name for inline image key", token.Pos)
		}

		key := token.Value
		valueToken, err := p.lexer.NextToken()
		if err != nil {
			return Operation{}, err
		}
		value, err := p.objectFromToken(valueToken)
		if err != nil {
			return Operation{}, fmt.Errorf("inline image key %s: %w", key, err)
		}
		params.Set(key, value)
	}

	data, err := p.lexer.ReadInlineImageData()
	if err != nil {
		return Operation{}, err
	}

	return Operation{Operator: "BI", Operands: []Object{params}, Data: data}, nil
}

func (p *Parser) objectFromToken(token Token) (Object, error) {
	switch token.Type {
	case TokenNumber:
		return parseNumber(token)
	case TokenString:
		return String{Value: []byte(token.Value)}, nil
	case TokenHexString:
		decoded, err := hex.DecodeString(token.Value)
		if err != nil {
			return nil, NewParseError("invalid hex string", token.Pos)
		}
		return String{Value: decoded, IsHex: true}, nil
	case TokenName:
		return Name{Value: token.Value}, nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDictionary()
	case TokenKeyword:
		return p.keywordObject(token)
	default:
		return nil, NewParseError(fmt.Sprintf("unexpected token type: %s", token.Type), token.Pos)
	}
}

func (p *Parser) keywordObject(token Token) (Object, error) {
	switch token.Value {
	case "true":
		return Bool{Value: true}, nil
	case "false":
		return Bool{Value: false}, nil
	case "null":
		return Null{}, nil
	default:
		return nil, NewParseError(fmt.Sprintf("unexpected keyword %q inside operand", token.Value), token.Pos)
	}
}

func (p *Parser) parseArray() (Object, error) {
	array := Array{Elements: make([]Object, 0)}

	for {
		token, err := p.lexer.NextToken()
		if err != nil {
			return nil, fmt.Errorf("failed to read array token: %w", err)
		}

		switch token.Type {
		case TokenArrayEnd:
			return array, nil
		case TokenEOF:
			return nil, NewParseError("unterminated array", token.Pos)
		}

		obj, err := p.objectFromToken(token)
		if err != nil {
			return nil, fmt.Errorf("failed to parse array element: %w", err)
		}
		array.Elements = append(array.Elements, obj)
	}
}

func (p *Parser) parseDictionary() (Object, error) {
	dict := NewDictionary()

	for {
		token, err := p.lexer.NextToken()
		if err != nil {
			return nil, fmt.Errorf("failed to read dictionary token: %w", err)
		}

		switch token.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, NewParseError("unterminated dictionary", token.Pos)
		case TokenName:
		default:
			return nil, NewParseError("expected name for dictionary key", token.Pos)
		}

		key := token.Value
		valueToken, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		value, err := p.objectFromToken(valueToken)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dictionary value for key %s: %w", key, err)
		}
		dict.Set(key, value)
	}
}

func parseNumber(token Token) (Object, error) {
	if !strings.Contains(token.Value, ".") {
		if v, err := strconv.ParseInt(token.Value, 10, 64); err == nil {
			return Int(v), nil
		}
	}
	v, err := strconv.ParseFloat(token.Value, 64)
	if err != nil {
		// Malformed numbers such as "--5" or "." are read as zero, as viewers do
		return Real(0), nil
	}
	return Real(v), nil
}
