package gateway

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// StripLineComments removes `--` style inline comments from each line of
// text. Policy checks and cache-key derivation both run on the stripped
// form, so forbidden tokens cannot hide behind a comment marker and comment
// placement cannot create distinct cache entries for the same query.
func StripLineComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, " ")
}

// CanonicalText strips comments and collapses whitespace runs to a single
// space. Two textually different but logically identical queries produce the
// same canonical form.
func CanonicalText(text string) string {
	stripped := StripLineComments(text)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(stripped, " "))
}

// ContainsKeyword reports whether the comment-stripped text contains any of
// the given keywords as a whole token, case-insensitively. Matching is
// token-based so column names like created_at do not trip the CREATE filter.
func ContainsKeyword(text string, keywords []string) (string, bool) {
	cleaned := strings.ToUpper(StripLineComments(text))
	tokens := tokenize(cleaned)
	for _, kw := range keywords {
		if _, ok := tokens[strings.ToUpper(kw)]; ok {
			return kw, true
		}
	}
	return "", false
}

// tokenize splits s into identifier-shaped tokens. Single-quoted string
// literals are skipped wholesale so a literal value never registers as a
// token; a doubled quote inside a literal is the SQL escape form. An
// unterminated literal swallows the rest of the text, which errs on the
// permissive side only for statements the database would reject anyway.
func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	start := -1
	flush := func(end int) {
		if start >= 0 {
			tokens[s[start:end]] = struct{}{}
			start = -1
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			flush(i)
			i++
			for i < len(s) {
				if s[i] != '\'' {
					i++
					continue
				}
				if i+1 < len(s) && s[i+1] == '\'' {
					i += 2
					continue
				}
				break
			}
			continue
		}
		isWord := c == '_' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
		if isWord {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(s))
	return tokens
}
