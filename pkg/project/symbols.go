package project

import (
	"fmt"
	"strings"
	"unicode"
)

// TopLevelSymbols performs a lexical scan of SysML source and returns
// the names of top-level package declarations, in declaration order.
// This is deliberately not a parser: it tracks brace nesting, skips
// comments and string literals, and picks the declared name out of
// `package Name { ... }` and `library package 'Quoted Name';` forms.
// Model content is never interpreted beyond this.
func TopLevelSymbols(src []byte) ([]string, error) {
	s := &sysmlScanner{src: string(src)}
	var symbols []string

	depth := 0
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		if tok == "" {
			break
		}
		switch tok {
		case "{":
			depth++
		case "}":
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced '}' at byte %d", s.pos)
			}
		case "package":
			if depth != 0 {
				continue
			}
			name, err := s.declaredName()
			if err != nil {
				return nil, err
			}
			if name != "" {
				symbols = append(symbols, name)
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced braces: depth %d at end of file", depth)
	}
	return symbols, nil
}

type sysmlScanner struct {
	src string
	pos int
}

// declaredName consumes tokens after a `package` keyword up to the body
// opener or terminator, returning the last name seen. The body opener
// is pushed back so the caller's depth tracking stays correct.
func (s *sysmlScanner) declaredName() (string, error) {
	name := ""
	for {
		mark := s.pos
		tok, err := s.next()
		if err != nil {
			return "", err
		}
		switch {
		case tok == "" || tok == ";":
			return name, nil
		case tok == "{" || tok == "}":
			s.pos = mark
			return name, nil
		case tok == "<" || tok == ">":
			// Short-name brackets; the bracketed alias is not indexed.
		default:
			name = tok
		}
	}
}

// next returns the next token: an identifier, a quoted name (without
// quotes), or a single punctuation character. Empty string means EOF.
func (s *sysmlScanner) next() (string, error) {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.pos++
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/':
			nl := strings.IndexByte(s.src[s.pos:], '\n')
			if nl < 0 {
				s.pos = len(s.src)
			} else {
				s.pos += nl + 1
			}
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '*':
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated block comment at byte %d", s.pos)
			}
			s.pos += end + 4
		case c == '\'':
			end := strings.IndexByte(s.src[s.pos+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("unterminated quoted name at byte %d", s.pos)
			}
			tok := s.src[s.pos+1 : s.pos+1+end]
			s.pos += end + 2
			return tok, nil
		case c == '"':
			end := s.pos + 1
			for end < len(s.src) && s.src[end] != '"' {
				if s.src[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(s.src) {
				return "", fmt.Errorf("unterminated string at byte %d", s.pos)
			}
			s.pos = end + 1
			// String literals are never symbols; keep scanning.
		case isIdentByte(c):
			start := s.pos
			for s.pos < len(s.src) && isIdentByte(s.src[s.pos]) {
				s.pos++
			}
			return s.src[start:s.pos], nil
		default:
			s.pos++
			return string(c), nil
		}
	}
	return "", nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 0x80 ||
		unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}
