package config

import (
	"errors"
	"strings"
)

// normalizeJSONC turns JSONC into strict JSON: comments become spaces (newlines
// are kept so decoder offsets still map to the original lines) and trailing
// commas before `}` or `]` are dropped.
func normalizeJSONC(content string) (string, error) {
	stripped, err := blankComments(content)
	if err != nil {
		return "", err
	}
	return dropTrailingCommas(stripped), nil
}

func blankComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	const (
		code = iota
		str
		lineComment
		blockComment
	)
	mode := code
	escaped := false

	for i := 0; i < len(content); i++ {
		ch := content[i]
		switch mode {
		case str:
			out.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				mode = code
			}
		case lineComment:
			if ch == '\n' || ch == '\r' {
				mode = code
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
		case blockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				mode = code
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
		default:
			if ch == '/' && i+1 < len(content) && (content[i+1] == '/' || content[i+1] == '*') {
				if content[i+1] == '/' {
					mode = lineComment
				} else {
					mode = blockComment
				}
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '"' {
				mode = str
			}
			out.WriteByte(ch)
		}
	}

	if mode == blockComment {
		return "", errors.New("unterminated block comment in JSONC")
	}
	return out.String(), nil
}

func dropTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escaped := false
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			out.WriteByte(ch)
			continue
		}

		switch ch {
		case '"':
			inString = true
		case ',':
			rest := strings.TrimLeft(content[i+1:], " \t\r\n")
			if rest != "" && (rest[0] == '}' || rest[0] == ']') {
				continue
			}
		}
		out.WriteByte(ch)
	}
	return out.String()
}
