package panels

import (
	"html"
	"strings"
)

// stripHTML flattens the markup some panels embed in their human-readable
// receipt text. Tags become spaces so "linha1<br>linha2" stays readable,
// runs of whitespace collapse, entities are unescaped.
func stripHTML(s string) string {
	var (
		b     strings.Builder
		inTag bool
	)
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}
