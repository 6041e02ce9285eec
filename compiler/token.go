package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Bluejay lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenEOS           // end of statement: ';' or a significant newline

	// Literals
	TokenNumber     // 42, 3.14
	TokenString     // "hello"
	TokenIdentifier // foo, _bar, $add

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBrace   // {
	TokenRBrace   // }
	TokenLBracket // [
	TokenRBracket // ]
	TokenComma    // ,
	TokenDot      // .
	TokenColon    // :

	// Operators
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenPercent      // %
	TokenStarStar     // **
	TokenBang         // !
	TokenBangEqual    // !=
	TokenEqual        // =
	TokenEqualEqual   // ==
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenLess         // <
	TokenLessEqual    // <=

	// Compound assignment
	TokenPlusEqual     // +=
	TokenMinusEqual    // -=
	TokenStarEqual     // *=
	TokenSlashEqual    // /=
	TokenPercentEqual  // %=
	TokenStarStarEqual // **=
	TokenPlusPlus      // ++
	TokenMinusMinus    // --

	// Keywords
	TokenAnd
	TokenBreak
	TokenClass
	TokenElse
	TokenFalse
	TokenFor
	TokenForeach
	TokenFunc
	TokenIf
	TokenImport
	TokenIn
	TokenNot
	TokenNull
	TokenOr
	TokenRepeat
	TokenReturn
	TokenSuper
	TokenThis
	TokenTrue
	TokenVar
	TokenWhile
	TokenXor
)

var tokenNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenEOS:           "end of statement",
	TokenNumber:        "NUMBER",
	TokenString:        "STRING",
	TokenIdentifier:    "IDENTIFIER",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenLBrace:        "{",
	TokenRBrace:        "}",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenComma:         ",",
	TokenDot:           ".",
	TokenColon:         ":",
	TokenPlus:          "+",
	TokenMinus:         "-",
	TokenStar:          "*",
	TokenSlash:         "/",
	TokenPercent:       "%",
	TokenStarStar:      "**",
	TokenBang:          "!",
	TokenBangEqual:     "!=",
	TokenEqual:         "=",
	TokenEqualEqual:    "==",
	TokenGreater:       ">",
	TokenGreaterEqual:  ">=",
	TokenLess:          "<",
	TokenLessEqual:     "<=",
	TokenPlusEqual:     "+=",
	TokenMinusEqual:    "-=",
	TokenStarEqual:     "*=",
	TokenSlashEqual:    "/=",
	TokenPercentEqual:  "%=",
	TokenStarStarEqual: "**=",
	TokenPlusPlus:      "++",
	TokenMinusMinus:    "--",
	TokenAnd:           "and",
	TokenBreak:         "break",
	TokenClass:         "class",
	TokenElse:          "else",
	TokenFalse:         "false",
	TokenFor:           "for",
	TokenForeach:       "foreach",
	TokenFunc:          "func",
	TokenIf:            "if",
	TokenImport:        "import",
	TokenIn:            "in",
	TokenNot:           "not",
	TokenNull:          "null",
	TokenOr:            "or",
	TokenRepeat:        "repeat",
	TokenReturn:        "return",
	TokenSuper:         "super",
	TokenThis:          "this",
	TokenTrue:          "true",
	TokenVar:           "var",
	TokenWhile:         "while",
	TokenXor:           "xor",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
//
// Literal holds the pre-parsed value for numbers (float64) and strings
// (the raw text between the quotes, escapes untouched). Offset is the byte
// offset of the token's first character in the source.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any
	Offset  int
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenEOS:
		return "EOS"
	}
	if len(t.Lexeme) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Lexeme[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Lexeme)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"and":     TokenAnd,
	"break":   TokenBreak,
	"class":   TokenClass,
	"else":    TokenElse,
	"false":   TokenFalse,
	"for":     TokenFor,
	"foreach": TokenForeach,
	"func":    TokenFunc,
	"if":      TokenIf,
	"import":  TokenImport,
	"in":      TokenIn,
	"not":     TokenNot,
	"null":    TokenNull,
	"or":      TokenOr,
	"repeat":  TokenRepeat,
	"return":  TokenReturn,
	"super":   TokenSuper,
	"this":    TokenThis,
	"true":    TokenTrue,
	"var":     TokenVar,
	"while":   TokenWhile,
	"xor":     TokenXor,
}

// Keywords returns the reserved words of the language.
func Keywords() []string {
	out := make([]string, 0, len(reservedWords))
	for k := range reservedWords {
		out = append(out, k)
	}
	return out
}

// continuesStatement lists the tokens after which a newline does not end
// the statement.
var continuesStatement = map[TokenType]bool{
	TokenEOS:           true,
	TokenComma:         true,
	TokenDot:           true,
	TokenMinus:         true,
	TokenPlus:          true,
	TokenSlash:         true,
	TokenStar:          true,
	TokenStarStar:      true,
	TokenPercent:       true,
	TokenEqual:         true,
	TokenPlusEqual:     true,
	TokenMinusEqual:    true,
	TokenStarEqual:     true,
	TokenSlashEqual:    true,
	TokenStarStarEqual: true,
	TokenPercentEqual:  true,
	TokenLBrace:        true,
	TokenLParen:        true,
	TokenLBracket:      true,
	TokenBang:          true,
	TokenBangEqual:     true,
	TokenEqualEqual:    true,
	TokenGreater:       true,
	TokenGreaterEqual:  true,
	TokenLess:          true,
	TokenLessEqual:     true,
	TokenColon:         true,
	TokenAnd:           true,
	TokenClass:         true,
	TokenElse:          true,
	TokenFunc:          true,
	TokenFor:           true,
	TokenForeach:       true,
	TokenIf:            true,
	TokenIn:            true,
	TokenNot:           true,
	TokenOr:            true,
	TokenRepeat:        true,
	TokenVar:           true,
	TokenWhile:         true,
	TokenXor:           true,
}

// statementStarters are the tokens at which panic-mode recovery may resume.
var statementStarters = map[TokenType]bool{
	TokenClass:   true,
	TokenFunc:    true,
	TokenVar:     true,
	TokenFor:     true,
	TokenForeach: true,
	TokenIf:      true,
	TokenWhile:   true,
	TokenRepeat:  true,
	TokenReturn:  true,
	TokenBreak:   true,
	TokenImport:  true,
}
