package cpu

import (
	"strconv"
	"strings"
)

// TokenKind classifies a lexeme.
//
//go:generate go tool stringer -linecomment -type=TokenKind
type TokenKind int

const (
	TOKEN_WORD     = TokenKind(0) // word
	TOKEN_REGISTER = TokenKind(1) // register
	TOKEN_NUMBER   = TokenKind(2) // number
	TOKEN_PUNCT    = TokenKind(3) // punct
)

// Token is a single classified lexeme of assembly text.
type Token struct {
	Kind   TokenKind
	Text   string // Source text.
	Value  uint64 // Numeric value for TOKEN_NUMBER, index for TOKEN_REGISTER.
	LineNo int    // Line number, starting at 1.
}

// Is returns true if the token is the punctuation or word in text.
func (tok Token) Is(text string) bool {
	return (tok.Kind == TOKEN_PUNCT || tok.Kind == TOKEN_WORD) && tok.Text == text
}

// IsLabel returns true if the token defines a label.
func (tok Token) IsLabel() bool {
	return tok.Kind == TOKEN_WORD && len(tok.Text) > 1 && strings.HasSuffix(tok.Text, ":")
}

// Register returns the register index of a register token.
func (tok Token) Register() Register {
	return Register(tok.Value)
}

func (tok Token) String() string {
	return tok.Text
}

const (
	punctChars = "@+-[]"
	spaceChars = " \t\r\n"
)

// Tokenize splits preprocessed assembly text into tokens.
//
// The characters '@', '+', '-', '[' and ']' are always single tokens. A token
// that starts with a digit is a number, parsed greedily with C style
// prefixes. Everything else is a word that runs to the next space or
// single character token.
func Tokenize(text string) (tokens []Token, err error) {
	lineno := 1

	for n := 0; n < len(text); {
		c := text[n]
		switch {
		case c == '\n':
			lineno++
			n++
		case strings.IndexByte(spaceChars, c) >= 0:
			n++
		case strings.IndexByte(punctChars, c) >= 0:
			tokens = append(tokens, Token{Kind: TOKEN_PUNCT, Text: text[n : n+1], LineNo: lineno})
			n++
		case c >= '0' && c <= '9':
			var tok Token
			tok, err = scanNumber(text[n:])
			if err != nil {
				err = &ErrSyntax{LineNo: lineno, Token: tok.Text, Err: err}
				return
			}
			tok.LineNo = lineno
			tokens = append(tokens, tok)
			n += len(tok.Text)
		default:
			end := n + 1
			for end < len(text) && strings.IndexByte(spaceChars+"+-[]", text[end]) < 0 {
				end++
			}
			tokens = append(tokens, classifyWord(text[n:end], lineno))
			n = end
		}
	}

	return
}

// classifyWord turns a word into a register, punctuation or word token.
func classifyWord(word string, lineno int) Token {
	if reg, ok := ParseRegister(word); ok {
		return Token{Kind: TOKEN_REGISTER, Text: word, Value: uint64(reg), LineNo: lineno}
	}
	if word == "=" {
		return Token{Kind: TOKEN_PUNCT, Text: word, LineNo: lineno}
	}
	return Token{Kind: TOKEN_WORD, Text: word, LineNo: lineno}
}

func isDigit(c byte, base int) bool {
	switch base {
	case 8:
		return c >= '0' && c <= '7'
	case 16:
		return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	}
	return c >= '0' && c <= '9'
}

// scanNumber consumes the longest numeric literal at the start of text.
func scanNumber(text string) (tok Token, err error) {
	base := 10
	start := 0

	if len(text) > 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') && isDigit(text[2], 16) {
		base = 16
		start = 2
	} else if len(text) > 1 && text[0] == '0' {
		base = 8
	}

	end := start
	for end < len(text) && isDigit(text[end], base) {
		end++
	}

	tok = Token{Kind: TOKEN_NUMBER, Text: text[:end]}
	tok.Value, err = strconv.ParseUint(text[start:end], base, 64)
	if err != nil {
		err = ErrParseNumber(tok.Text)
		return
	}

	return
}
