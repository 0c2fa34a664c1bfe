package motwtest

import (
	"fmt"
	"strings"
)

type value struct {
	str     string
	boolean bool
	list    []string
}

// parseAssignments reads the `$name = <value>` header lines of a script.
func parseAssignments(script string) (map[string]value, error) {
	vars := make(map[string]value)
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}
		name, rhs, ok := strings.Cut(line[1:], " = ")
		if !ok || strings.ContainsAny(name, " .[") {
			continue
		}
		v, err := parseValue(rhs)
		if err != nil {
			return nil, fmt.Errorf("$%s: %w", name, err)
		}
		vars[name] = v
	}
	return vars, nil
}

func parseValue(rhs string) (value, error) {
	switch {
	case rhs == "$true":
		return value{boolean: true}, nil
	case rhs == "$false":
		return value{}, nil
	case strings.HasPrefix(rhs, "@("):
		items, err := parseArray(rhs)
		return value{list: items}, err
	case isQuote(firstRune(rhs)):
		s, rest, err := parseLiteral(rhs)
		if err != nil {
			return value{}, err
		}
		if rest != "" {
			return value{}, fmt.Errorf("trailing text after literal: %q", rest)
		}
		return value{str: s}, nil
	}
	return value{}, nil
}

func parseArray(s string) ([]string, error) {
	rest := strings.TrimPrefix(s, "@(")
	var items []string
	for {
		if strings.HasPrefix(rest, ")") {
			return items, nil
		}
		item, after, err := parseLiteral(rest)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		rest = strings.TrimPrefix(after, ",")
		if rest == "" {
			return nil, fmt.Errorf("unterminated array")
		}
	}
}

// parseLiteral decodes a single-quoted literal where any quote character
// doubled stands for itself.
func parseLiteral(s string) (string, string, error) {
	runes := []rune(s)
	if len(runes) == 0 || !isQuote(runes[0]) {
		return "", "", fmt.Errorf("expected quoted literal at %q", s)
	}
	var b strings.Builder
	for i := 1; i < len(runes); i++ {
		if isQuote(runes[i]) {
			if i+1 < len(runes) && isQuote(runes[i+1]) {
				b.WriteRune(runes[i])
				i++
				continue
			}
			return b.String(), string(runes[i+1:]), nil
		}
		b.WriteRune(runes[i])
	}
	return "", "", fmt.Errorf("unterminated literal")
}

func isQuote(r rune) bool {
	switch r {
	case '\'', '‘', '’', '‚', '‛':
		return true
	}
	return false
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
