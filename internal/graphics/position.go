package graphics

import (
	"fmt"
	"strconv"
	"strings"
)

// Position identifies one slot of a Sequence at one generation. Positions
// are values; they become invalid as soon as the sequence's generation
// advances. The zero value is NoPosition.
type Position struct {
	owner uint64
	gen   uint64
	slot  int
}

// NoPosition is the "none" position. As an anchor it means the front of the sequence.
var NoPosition = Position{}

// IsNone reports whether p is NoPosition
func (p Position) IsNone() bool {
	return p == NoPosition
}

// Index returns the slot index the position was issued for
func (p Position) Index() int {
	return p.slot
}

// Generation returns the generation the position was issued in
func (p Position) Generation() uint64 {
	return p.gen
}

// String renders the position as "<sequence>:<generation>:<index>", or "none"
func (p Position) String() string {
	if p.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%d:%d:%d", p.owner, p.gen, p.slot)
}

// Token is the parsed form of a position string. Sequence identifies the
// issuing sequence, so a token handed to another sequence is rejected.
type Token struct {
	Sequence   uint64
	Generation uint64
	Index      int
}

// ParseToken parses a "<sequence>:<generation>:<index>" token. "none" and
// the empty string yield ok == false with no error.
func ParseToken(token string) (tok Token, ok bool, err error) {
	token = strings.TrimSpace(token)
	if token == "" || token == "none" {
		return Token{}, false, nil
	}

	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return Token{}, false, fmt.Errorf("malformed position token %q", token)
	}
	if tok.Sequence, err = strconv.ParseUint(parts[0], 10, 64); err != nil {
		return Token{}, false, fmt.Errorf("malformed position sequence %q: %w", parts[0], err)
	}
	if tok.Generation, err = strconv.ParseUint(parts[1], 10, 64); err != nil {
		return Token{}, false, fmt.Errorf("malformed position generation %q: %w", parts[1], err)
	}
	if tok.Index, err = strconv.Atoi(parts[2]); err != nil {
		return Token{}, false, fmt.Errorf("malformed position index %q: %w", parts[2], err)
	}
	return tok, true, nil
}
