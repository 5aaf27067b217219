// internal/cw/morse.go
// Package cw implements the Morse symbol codec and the pause-driven decoder.
package cw

import (
	"errors"
	"strings"
	"unicode"
)

// Symbol is a single Morse element.
type Symbol uint8

const (
	// Dot is the short element (short press)
	Dot Symbol = iota + 1
	// Dash is the long element (long press)
	Dash
)

// Unknown is returned by Decode for sequences with no mapped character.
const Unknown = '?'

// MaxCodeLength is the longest code ParseCode accepts.
const MaxCodeLength = 6

var (
	// ErrInvalidSymbol indicates a code string contained something other than '.' or '-'
	ErrInvalidSymbol = errors.New("code may only contain '.' and '-'")
	// ErrCodeTooLong indicates a code string exceeded MaxCodeLength
	ErrCodeTooLong = errors.New("code exceeds maximum length")
	// ErrEmptyCode indicates an empty code string
	ErrEmptyCode = errors.New("code is empty")
)

// String renders the symbol as '.' or '-'.
func (s Symbol) String() string {
	switch s {
	case Dot:
		return "."
	case Dash:
		return "-"
	default:
		return ""
	}
}

// Code is an ordered sequence of symbols representing one character.
type Code []Symbol

// String renders the code in dot/dash notation, e.g. "...".
func (c Code) String() string {
	var b strings.Builder
	b.Grow(len(c))
	for _, s := range c {
		b.WriteString(s.String())
	}
	return b.String()
}

// Equal reports whether two codes hold the same symbols.
func (c Code) Equal(o Code) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// ParseCode parses dot/dash notation into a Code.
func ParseCode(s string) (Code, error) {
	if s == "" {
		return nil, ErrEmptyCode
	}
	if len(s) > MaxCodeLength {
		return nil, ErrCodeTooLong
	}
	code := make(Code, 0, len(s))
	for _, r := range s {
		switch r {
		case '.':
			code = append(code, Dot)
		case '-':
			code = append(code, Dash)
		default:
			return nil, ErrInvalidSymbol
		}
	}
	return code, nil
}

type entry struct {
	char rune
	code string
}

// International Morse, letters and digits only.
var table = [...]entry{
	{'A', ".-"}, {'B', "-..."}, {'C', "-.-."}, {'D', "-.."},
	{'E', "."}, {'F', "..-."}, {'G', "--."}, {'H', "...."},
	{'I', ".."}, {'J', ".---"}, {'K', "-.-"}, {'L', ".-.."},
	{'M', "--"}, {'N', "-."}, {'O', "---"}, {'P', ".--."},
	{'Q', "--.-"}, {'R', ".-."}, {'S', "..."}, {'T', "-"},
	{'U', "..-"}, {'V', "...-"}, {'W', ".--"}, {'X', "-..-"},
	{'Y', "-.--"}, {'Z', "--.."},
	{'0', "-----"}, {'1', ".----"}, {'2', "..---"}, {'3', "...--"},
	{'4', "....-"}, {'5', "....."}, {'6', "-...."}, {'7', "--..."},
	{'8', "---.."}, {'9', "----."},
}

// morseTree is the binary tree for decode lookup, built from table.
// Left branch = dot, right branch = dash.
// Index 1 is the root; children of i are 2i (dot) and 2i+1 (dash).
// 64 slots cover every code of up to five symbols.
var morseTree [64]rune

var encodeTable map[rune]Code

func init() {
	encodeTable = make(map[rune]Code, len(table))
	for _, e := range table {
		code, err := ParseCode(e.code)
		if err != nil {
			panic("cw: bad table entry for " + string(e.char))
		}
		encodeTable[e.char] = code

		idx := treeIndex(code)
		if idx <= 0 || idx >= len(morseTree) {
			panic("cw: table entry does not fit tree: " + string(e.char))
		}
		if morseTree[idx] != 0 {
			panic("cw: duplicate code in table: " + e.code)
		}
		morseTree[idx] = e.char
	}
}

// treeIndex walks the tree for code. Returns -1 once the walk leaves the tree.
func treeIndex(code Code) int {
	idx := 1
	for _, s := range code {
		switch s {
		case Dot:
			idx *= 2
		case Dash:
			idx = idx*2 + 1
		default:
			return -1
		}
		if idx >= len(morseTree) {
			return -1
		}
	}
	return idx
}

// Encode returns the code for r. Lookup is case-insensitive.
// The second result is false for characters outside A-Z and 0-9.
func Encode(r rune) (Code, bool) {
	code, ok := encodeTable[unicode.ToUpper(r)]
	if !ok {
		return nil, false
	}
	out := make(Code, len(code))
	copy(out, code)
	return out, true
}

// Decode returns the character for code, or Unknown.
func Decode(code Code) rune {
	if len(code) == 0 {
		return Unknown
	}
	idx := treeIndex(code)
	if idx < 0 || morseTree[idx] == 0 {
		return Unknown
	}
	return morseTree[idx]
}

// Alphabet returns the supported characters in table order.
func Alphabet() []rune {
	out := make([]rune, len(table))
	for i, e := range table {
		out[i] = e.char
	}
	return out
}

// EncodeText encodes text word by word. Codes are joined by a space and words
// by " / ". Unsupported characters are skipped.
func EncodeText(text string) string {
	var words []string
	for _, w := range strings.Fields(text) {
		var codes []string
		for _, r := range w {
			if code, ok := Encode(r); ok {
				codes = append(codes, code.String())
			}
		}
		if len(codes) > 0 {
			words = append(words, strings.Join(codes, " "))
		}
	}
	return strings.Join(words, " / ")
}

// DecodeText decodes space separated codes; "/" marks a word break.
// Codes that do not parse or match decode to Unknown.
func DecodeText(morse string) string {
	var b strings.Builder
	for _, tok := range strings.Fields(morse) {
		if tok == "/" {
			b.WriteByte(' ')
			continue
		}
		code, err := ParseCode(tok)
		if err != nil {
			b.WriteRune(Unknown)
			continue
		}
		b.WriteRune(Decode(code))
	}
	return b.String()
}
