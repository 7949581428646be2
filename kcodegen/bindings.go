package kcodegen

import (
	"fmt"
	"go/scanner"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

var bindingPattern = regexp.MustCompile(`^(in|out)(0|[1-9][0-9]*)$`)

// BindingName returns the generated name of the buffer behind a positional
// port binding such as in0 or out1.
func BindingName(binding string) string {
	return "cb_" + binding
}

// RewriteBindings replaces the positional port identifiers inN and outN in
// body with their generated buffer bindings. Only identifier tokens are
// touched, comments and other text stay verbatim.
func RewriteBindings(body string, inputs, outputs int) (string, error) {
	src := []byte(body)
	fset := token.NewFileSet()
	file := fset.AddFile("body", fset.Base(), len(src))

	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(file, src, func(pos token.Position, msg string) { errs.Add(pos, msg) }, scanner.ScanComments)

	var out strings.Builder
	last := 0
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok != token.IDENT {
			continue
		}
		m := bindingPattern.FindStringSubmatch(lit)
		if m == nil {
			continue
		}

		limit := inputs
		if m[1] == "out" {
			limit = outputs
		}
		if idx, err := strconv.Atoi(m[2]); err != nil || idx >= limit {
			return "", fmt.Errorf("%w: %s at %s, kernel has %d %sput ports",
				ErrUnknownBinding, lit, fset.Position(pos), limit, m[1])
		}

		off := file.Offset(pos)
		out.Write(src[last:off])
		out.WriteString(BindingName(lit))
		last = off + len(lit)
	}
	if err := errs.Err(); err != nil {
		return "", fmt.Errorf("scan compute body: %w", err)
	}
	out.Write(src[last:])
	return out.String(), nil
}

// indentBody drops surrounding blank lines, removes the common leading
// whitespace and indents every line with one tab.
func indentBody(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	prefix, first := "", true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix, first = lead, false
			continue
		}
		for !strings.HasPrefix(lead, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = "\t" + strings.TrimRight(strings.TrimPrefix(line, prefix), " \t")
	}
	return strings.Join(lines, "\n")
}
