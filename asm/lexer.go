package asm

import (
	"fmt"
	"regexp"
	"strings"
)

// statement is one parsed source line.
type statement struct {
	line   int
	source string

	labels []string

	// Exactly one of directive and mnemonic is set for non-blank lines.
	directive string
	mnemonic  string
	args      []string
}

func (st *statement) blank() bool {
	return st.directive == "" && st.mnemonic == ""
}

var labelPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\s*:`)

// parseSource splits source into statements, one per line.
func parseSource(source string) ([]*statement, []error) {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.ReplaceAll(source, "\r", "\n")

	var (
		stmts []*statement
		errs  []error
	)

	for i, text := range strings.Split(source, "\n") {
		st, err := parseLine(i+1, text)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		stmts = append(stmts, st)
	}

	return stmts, errs
}

func parseLine(number int, text string) (*statement, error) {
	st := &statement{line: number, source: text}

	rest, err := stripComment(text)
	if err != nil {
		return nil, lineError(st, err)
	}

	rest = strings.TrimSpace(rest)
	for {
		m := labelPattern.FindStringSubmatch(rest)
		if m == nil {
			break
		}

		st.labels = append(st.labels, m[1])
		rest = strings.TrimSpace(rest[len(m[0]):])
	}

	if rest == "" {
		return st, nil
	}

	head, tail := rest, ""
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		head, tail = rest[:i], rest[i+1:]
	}

	head = strings.ToLower(head)
	if strings.HasPrefix(head, ".") {
		st.directive = head
	} else {
		st.mnemonic = head
	}

	st.args, err = splitOperands(tail)
	if err != nil {
		return nil, lineError(st, err)
	}

	return st, nil
}

// stripComment removes a trailing '#' comment, ignoring '#' inside string
// and character literals.
func stripComment(text string) (string, error) {
	var quote byte

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return text[:i], nil
		}
	}

	if quote != 0 {
		return "", fmt.Errorf("%w: unterminated literal", ErrSyntax)
	}

	return text, nil
}

// splitOperands splits on commas that are outside literals and parentheses.
func splitOperands(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var (
		out   []string
		quote byte
		depth int
		start int
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(text[start:i]))
			start = i + 1
		}
	}

	out = append(out, strings.TrimSpace(text[start:]))

	for _, op := range out {
		if op == "" {
			return nil, fmt.Errorf("%w: empty operand", ErrSyntax)
		}
	}

	return out, nil
}
