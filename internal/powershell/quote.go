package powershell

import "strings"

// QuoteLiteral renders s as a PowerShell single-quoted string literal.
// PowerShell accepts the typographic single quotes as delimiters too, so each
// of them is doubled along with the ASCII apostrophe.
func QuoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '‘', '’', '‚', '‛':
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// QuoteArgument wraps s as one double-quoted command-line argument following
// the Windows argv parsing rules: backslashes are literal unless they precede
// a double quote, in which case they are doubled and the quote escaped.
func QuoteArgument(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	slashes := 0
	for _, r := range s {
		switch r {
		case '\\':
			slashes++
		case '"':
			b.WriteString(strings.Repeat(`\`, slashes+1))
			slashes = 0
		default:
			slashes = 0
		}
		b.WriteRune(r)
	}
	b.WriteString(strings.Repeat(`\`, slashes))
	b.WriteByte('"')
	return b.String()
}

// CommandLine joins the executable, its arguments and the script into a single
// command line, every part passed through QuoteArgument.
func CommandLine(path string, args []string, script string) string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, QuoteArgument(path))
	for _, a := range args {
		parts = append(parts, QuoteArgument(a))
	}
	parts = append(parts, QuoteArgument(script))
	return strings.Join(parts, " ")
}
