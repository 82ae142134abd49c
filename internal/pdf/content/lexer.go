package content

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"unicode"
)

// Lexer tokenizes content stream data
type Lexer struct {
	reader   *bufio.Reader
	position int64
	current  byte
	hasNext  bool
	error    error
}

// NewLexer creates a new content stream lexer
func NewLexer(reader io.Reader) *Lexer {
	lexer := &Lexer{
		reader:   bufio.NewReader(reader),
		position: -1, // Will be 0 after first advance
		hasNext:  true,
	}
	lexer.advance()
	return lexer
}

// advance reads the next character from the input
func (l *Lexer) advance() {
	if !l.hasNext {
		return
	}

	ch, err := l.reader.ReadByte()
	if err != nil {
		if err != io.EOF {
			l.error = err
		}
		l.hasNext = false
		l.current = 0
		return
	}

	l.current = ch
	l.position++
}

// peek looks at the next character without advancing
func (l *Lexer) peek() byte {
	if !l.hasNext {
		return 0
	}

	next, err := l.reader.Peek(1)
	if err != nil || len(next) == 0 {
		return 0
	}
	return next[0]
}

func (l *Lexer) skipWhitespace() {
	for l.hasNext && IsWhitespace(l.current) {
		l.advance()
	}
}

// skipComment skips a comment line starting with %
func (l *Lexer) skipComment() {
	if l.current != PercentSign {
		return
	}

	for l.hasNext && l.current != LineFeedChar && l.current != CarriageReturnChar {
		l.advance()
	}

	if l.hasNext && (l.current == LineFeedChar || l.current == CarriageReturnChar) {
		if l.current == CarriageReturnChar && l.peek() == LineFeedChar {
			l.advance()
		}
		l.advance()
	}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	if l.error != nil {
		return Token{Type: TokenError, Value: l.error.Error(), Pos: l.position}, l.error
	}

	for l.hasNext {
		if IsWhitespace(l.current) {
			l.skipWhitespace()
		} else if l.current == PercentSign {
			l.skipComment()
		} else {
			break
		}
	}

	if !l.hasNext {
		return Token{Type: TokenEOF, Pos: l.position}, nil
	}

	startPos := l.position

	switch l.current {
	case LeftParen:
		return l.readLiteralString()
	case LeftAngle:
		if l.peek() == LeftAngle {
			l.advance()
			l.advance()
			return Token{Type: TokenDictStart, Value: "<<", Pos: startPos}, nil
		}
		return l.readHexString()
	case RightAngle:
		if l.peek() == RightAngle {
			l.advance()
			l.advance()
			return Token{Type: TokenDictEnd, Value: ">>", Pos: startPos}, nil
		}
		l.advance()
		return Token{Type: TokenDelimiter, Value: ">", Pos: startPos}, nil
	case LeftSquare:
		l.advance()
		return Token{Type: TokenArrayStart, Value: "[", Pos: startPos}, nil
	case RightSquare:
		l.advance()
		return Token{Type: TokenArrayEnd, Value: "]", Pos: startPos}, nil
	case LeftCurly, RightCurly, RightParen:
		ch := l.current
		l.advance()
		return Token{Type: TokenDelimiter, Value: string(ch), Pos: startPos}, nil
	case Solidus:
		return l.readName()
	default:
		if unicode.IsDigit(rune(l.current)) || l.current == '+' || l.current == '-' || l.current == '.' {
			return l.readNumber()
		}
		return l.readKeyword()
	}
}

// readLiteralString reads a literal string enclosed in parentheses
func (l *Lexer) readLiteralString() (Token, error) {
	startPos := l.position
	var buffer bytes.Buffer

	l.advance() // Skip opening parenthesis
	parenCount := 1

	for l.hasNext && parenCount > 0 {
		ch := l.current

		switch ch {
		case LeftParen:
			parenCount++
			buffer.WriteByte(ch)
		case RightParen:
			parenCount--
			if parenCount > 0 {
				buffer.WriteByte(ch)
			}
		case '\\':
			l.advance()
			if !l.hasNext {
				break
			}
			l.readEscape(&buffer)
		default:
			buffer.WriteByte(ch)
		}

		l.advance()
	}

	if parenCount > 0 {
		return Token{Type: TokenError, Value: "unterminated string", Pos: startPos},
			NewParseError("unterminated literal string", startPos)
	}

	return Token{Type: TokenString, Value: buffer.String(), Pos: startPos}, nil
}

// readEscape decodes the escape sequence whose first character is current
func (l *Lexer) readEscape(buffer *bytes.Buffer) {
	switch l.current {
	case 'n':
		buffer.WriteByte('\n')
	case 'r':
		buffer.WriteByte('\r')
	case 't':
		buffer.WriteByte('\t')
	case 'b':
		buffer.WriteByte('\b')
	case 'f':
		buffer.WriteByte('\f')
	case '(', ')', '\\':
		buffer.WriteByte(l.current)
	case LineFeedChar, CarriageReturnChar:
		// Line continuation
		if l.current == CarriageReturnChar && l.peek() == LineFeedChar {
			l.advance()
		}
	default:
		if l.current >= '0' && l.current <= '7' {
			octal := string(l.current)
			for i := 0; i < 2 && l.peek() >= '0' && l.peek() <= '7'; i++ {
				l.advance()
				octal += string(l.current)
			}
			val, _ := strconv.ParseUint(octal, 8, 16)
			buffer.WriteByte(byte(val))
			return
		}
		buffer.WriteByte(l.current)
	}
}

// readHexString reads a hexadecimal string enclosed in angle brackets
func (l *Lexer) readHexString() (Token, error) {
	startPos := l.position
	var buffer bytes.Buffer

	l.advance() // Skip opening angle bracket

	for l.hasNext && l.current != RightAngle {
		if !IsWhitespace(l.current) {
			if !unicode.Is(unicode.ASCII_Hex_Digit, rune(l.current)) {
				return Token{Type: TokenError, Value: "invalid hex digit", Pos: l.position},
					NewParseError("invalid hex digit in hex string", l.position)
			}
			buffer.WriteByte(l.current)
		}
		l.advance()
	}

	if !l.hasNext {
		return Token{Type: TokenError, Value: "unterminated hex string", Pos: startPos},
			NewParseError("unterminated hex string", startPos)
	}
	l.advance() // Skip closing angle bracket

	hexStr := buffer.String()
	if len(hexStr)%2 == 1 {
		hexStr += "0"
	}

	return Token{Type: TokenHexString, Value: hexStr, Pos: startPos}, nil
}

// readName reads a name starting with /
func (l *Lexer) readName() (Token, error) {
	startPos := l.position
	var buffer bytes.Buffer

	l.advance() // Skip the solidus

	for l.hasNext && IsRegular(l.current) {
		if l.current != '#' {
			buffer.WriteByte(l.current)
			l.advance()
			continue
		}

		// Hex escape in name
		l.advance()
		if !l.hasNext || !unicode.Is(unicode.ASCII_Hex_Digit, rune(l.current)) {
			buffer.WriteByte('#')
			continue
		}
		hex1 := l.current
		l.advance()
		if !l.hasNext || !unicode.Is(unicode.ASCII_Hex_Digit, rune(l.current)) {
			buffer.WriteByte('#')
			buffer.WriteByte(hex1)
			continue
		}
		val, _ := strconv.ParseUint(string([]byte{hex1, l.current}), 16, 8)
		buffer.WriteByte(byte(val))
		l.advance()
	}

	return Token{Type: TokenName, Value: buffer.String(), Pos: startPos}, nil
}

// readNumber reads a numeric value (integer or real)
func (l *Lexer) readNumber() (Token, error) {
	startPos := l.position
	var buffer bytes.Buffer

	if l.current == '+' || l.current == '-' {
		buffer.WriteByte(l.current)
		l.advance()
	}

	for l.hasNext && unicode.IsDigit(rune(l.current)) {
		buffer.WriteByte(l.current)
		l.advance()
	}

	if l.hasNext && l.current == '.' {
		buffer.WriteByte(l.current)
		l.advance()

		for l.hasNext && unicode.IsDigit(rune(l.current)) {
			buffer.WriteByte(l.current)
			l.advance()
		}
	}

	return Token{Type: TokenNumber, Value: buffer.String(), Pos: startPos}, nil
}

// readKeyword reads an operator or keyword
func (l *Lexer) readKeyword() (Token, error) {
	startPos := l.position
	var buffer bytes.Buffer

	for l.hasNext && IsRegular(l.current) {
		buffer.WriteByte(l.current)
		l.advance()
	}

	return Token{Type: TokenKeyword, Value: buffer.String(), Pos: startPos}, nil
}

// ReadInlineImageData reads the raw sample data following an ID operator,
// up to and including the terminating EI keyword.
func (l *Lexer) ReadInlineImageData() ([]byte, error) {
	startPos := l.position

	// Exactly one whitespace byte separates ID from the data
	if l.hasNext && IsWhitespace(l.current) {
		l.advance()
	}

	var buffer bytes.Buffer
	for l.hasNext {
		if l.current == 'E' && l.peek() == 'I' && l.atDataBoundary(&buffer) {
			l.advance() // E
			l.advance() // I
			if !l.hasNext || IsWhitespace(l.current) || IsDelimiter(l.current) {
				data := buffer.Bytes()
				if n := len(data); n > 0 && IsWhitespace(data[n-1]) {
					data = data[:n-1]
				}
				return data, l.error
			}
			buffer.WriteString("EI")
			continue
		}
		buffer.WriteByte(l.current)
		l.advance()
	}

	return nil, NewParseError("inline image data not terminated by EI", startPos)
}

func (l *Lexer) atDataBoundary(buffer *bytes.Buffer) bool {
	data := buffer.Bytes()
	return len(data) == 0 || IsWhitespace(data[len(data)-1])
}
