// Package frontend implements a minimal SQL front end - a lexer,
// recursive-descent parser, and binder - sufficient to drive the
// virtual datasets and exercise the optimizer/executor end to end from
// the CLI and from tests, standing in for the full MySQL-flavoured
// grammar spec.md leaves external (§6, Parser/Binder interfaces).
// Grounded on the teacher's now-removed internal/lexer in spirit
// (single-pass, rune-at-a-time scanner producing a flat token slice)
// but written fresh for the subset of SELECT this module supports.
package frontend

import (
	"strings"

	"morselsql/internal/engineerrors"
)

// TokenKind is the closed set of lexical token kinds this front end
// recognises.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokNumber
	TokString
	TokOp
	TokPunct
	TokKeyword
)

type Token struct {
	Kind TokenKind
	Text string
}

var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true,
	"NOT": true, "ORDER": true, "BY": true, "ASC": true, "DESC": true,
	"LIMIT": true, "AS": true, "JOIN": true, "INNER": true, "LEFT": true,
	"RIGHT": true, "FULL": true, "CROSS": true, "ON": true, "GROUP": true,
	"DISTINCT": true, "TRUE": true, "FALSE": true, "NULL": true, "IS": true,
	"LIKE": true, "IN": true, "UNNEST": true, "EXPLAIN": true, "SHOW": true,
	"COLUMNS": true,
}

// Lex tokenizes sql into a flat slice, always terminated by a TokEOF.
func Lex(sql string) ([]Token, error) {
	var out []Token
	r := []rune(sql)
	i, n := 0, len(r)
	for i < n {
		c := r[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'':
			j := i + 1
			var sb strings.Builder
			for j < n && r[j] != '\'' {
				sb.WriteRune(r[j])
				j++
			}
			if j >= n {
				return nil, engineerrors.New(engineerrors.UnsupportedSyntaxError, "unterminated string literal")
			}
			out = append(out, Token{Kind: TokString, Text: sb.String()})
			i = j + 1
		case isDigit(c):
			j := i
			for j < n && (isDigit(r[j]) || r[j] == '.') {
				j++
			}
			out = append(out, Token{Kind: TokNumber, Text: string(r[i:j])})
			i = j
		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(r[j]) {
				j++
			}
			word := string(r[i:j])
			upper := strings.ToUpper(word)
			if keywords[upper] {
				out = append(out, Token{Kind: TokKeyword, Text: upper})
			} else {
				out = append(out, Token{Kind: TokIdent, Text: word})
			}
			i = j
		case c == '$':
			j := i + 1
			for j < n && isIdentPart(r[j]) {
				j++
			}
			out = append(out, Token{Kind: TokIdent, Text: string(r[i:j])})
			i = j
		case c == '<' || c == '>' || c == '!' || c == '=':
			j := i + 1
			if j < n && r[j] == '=' {
				j++
			}
			out = append(out, Token{Kind: TokOp, Text: string(r[i:j])})
			i = j
		case strings.ContainsRune("+-*/%", c):
			out = append(out, Token{Kind: TokOp, Text: string(c)})
			i++
		case strings.ContainsRune(",().;", c):
			out = append(out, Token{Kind: TokPunct, Text: string(c)})
			i++
		default:
			return nil, engineerrors.New(engineerrors.UnsupportedSyntaxError, "unexpected character: "+string(c))
		}
	}
	out = append(out, Token{Kind: TokEOF})
	return out, nil
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }
func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c rune) bool { return isIdentStart(c) || isDigit(c) }
