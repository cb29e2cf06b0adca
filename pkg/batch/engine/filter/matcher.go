// Package filter selects samples whose name matches a glob or regular expression.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

const moduleName = "filter"

// Matcher is a compiled sample name filter. A Matcher with an empty pattern
// keeps every sample.
type Matcher struct {
	mode    string
	pattern string
	re      *regexp.Regexp
}

// Compile validates pattern for the given mode.
//
// In glob mode the pattern must match the whole name; "*", "?", "[abc]" and
// "[!abc]" follow shell conventions and every other character is literal.
// In regex mode the expression may match anywhere in the name; anchor it
// with ^ and $ for whole-name matching.
func Compile(mode, pattern string) (*Matcher, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = config.FilterModeGlob
	}
	m := &Matcher{mode: mode, pattern: pattern}
	if pattern == "" {
		return m, nil
	}

	var expr string
	switch mode {
	case config.FilterModeGlob:
		expr = translateGlob(pattern)
	case config.FilterModeRegex:
		expr = pattern
	default:
		return nil, exception.NewBatchErrorf(moduleName, exception.KindConfiguration, "unknown match mode %q (use %s or %s)", mode, config.FilterModeGlob, config.FilterModeRegex)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, exception.KindConfiguration, "invalid %s pattern %q: %v", mode, pattern, err)
	}
	m.re = re
	return m, nil
}

// Mode returns the match mode.
func (m *Matcher) Mode() string { return m.mode }

// Pattern returns the pattern as given.
func (m *Matcher) Pattern() string { return m.pattern }

// Match reports whether name passes the filter.
func (m *Matcher) Match(name string) bool {
	if m.re == nil {
		return true
	}
	return m.re.MatchString(name)
}

// Filter returns the samples whose name matches, preserving their order.
func (m *Matcher) Filter(samples []model.Sample) []model.Sample {
	if m.re == nil {
		return samples
	}
	out := make([]model.Sample, 0, len(samples))
	for _, s := range samples {
		if m.Match(s.Name) {
			out = append(out, s)
		}
	}
	logger.Infof("Filter sample_name=%q matched %d / %d samples", m.pattern, len(out), len(samples))
	return out
}

// translateGlob converts a shell-style pattern into an anchored regular expression.
func translateGlob(pattern string) string {
	var b strings.Builder
	b.WriteString(`^(?s:`)
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			end, class, ok := bracketClass(runes, i)
			if !ok {
				// An unterminated bracket is a literal "[".
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(class)
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(`)$`)
	return b.String()
}

// bracketClass parses the class starting at runes[start] == '['. It returns the
// index of the closing ']' and the equivalent regexp class.
func bracketClass(runes []rune, start int) (int, string, bool) {
	j := start + 1
	if j < len(runes) && runes[j] == '!' {
		j++
	}
	// A ']' right after the opening bracket is part of the set.
	if j < len(runes) && runes[j] == ']' {
		j++
	}
	for j < len(runes) && runes[j] != ']' {
		j++
	}
	if j >= len(runes) {
		return 0, "", false
	}

	body := runes[start+1 : j]
	negate := len(body) > 0 && body[0] == '!'
	if negate {
		body = body[1:]
	}

	var items strings.Builder
	for k := 0; k < len(body); k++ {
		if k+2 < len(body) && body[k+1] == '-' {
			lo, hi := body[k], body[k+2]
			k += 2
			// Reversed ranges match nothing.
			if lo > hi {
				continue
			}
			writeClassRune(&items, lo)
			items.WriteByte('-')
			writeClassRune(&items, hi)
			continue
		}
		writeClassRune(&items, body[k])
	}

	if items.Len() == 0 {
		if negate {
			return j, `.`, true
		}
		return j, `[^\x00-\x{10FFFF}]`, true
	}
	if negate {
		return j, "[^" + items.String() + "]", true
	}
	return j, "[" + items.String() + "]", true
}

func writeClassRune(b *strings.Builder, r rune) {
	switch r {
	case '\\', '[', ']', '^', '-':
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}

// String renders the filter for log lines.
func (m *Matcher) String() string {
	if m.re == nil {
		return "all samples"
	}
	return fmt.Sprintf("sample_name %s %q", m.mode, m.pattern)
}
