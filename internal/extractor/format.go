package extractor

import (
	"math"
	"strconv"
	"strings"

	"github.com/mvp-joe/logsift/internal/pyast"
)

// percentConversions are the printf-style conversion characters.
const percentConversions = "diouxXeEfFgGcrsa"

// percentSpec is one conversion specifier found in a template.
type percentSpec struct {
	start, end int
	key        string
	keyed      bool
	// escape marks "%%", which renders a single percent sign and consumes
	// no argument.
	escape bool
}

// scanPercent finds printf-style specifiers: "%[(key)][flags][width]
// [.precision][length]conversion". A percent sign preceded by a backslash
// does not start a specifier.
func scanPercent(s string) []percentSpec {
	var out []percentSpec
	for i := 0; i < len(s); i++ {
		if s[i] != '%' || (i > 0 && s[i-1] == '\\') {
			continue
		}
		j := i + 1
		if j < len(s) && s[j] == '%' {
			out = append(out, percentSpec{start: i, end: j + 1, escape: true})
			i = j
			continue
		}

		spec := percentSpec{start: i}
		if j < len(s) && s[j] == '(' {
			closing := strings.IndexByte(s[j:], ')')
			if closing < 0 {
				continue
			}
			spec.key = s[j+1 : j+closing]
			spec.keyed = true
			j += closing + 1
		}
		for j < len(s) && strings.IndexByte("#0- +", s[j]) >= 0 {
			j++
		}
		j = skipCount(s, j)
		if j < len(s) && s[j] == '.' {
			j = skipCount(s, j+1)
		}
		for j < len(s) && strings.IndexByte("hlL", s[j]) >= 0 {
			j++
		}
		if j < len(s) && strings.IndexByte(percentConversions, s[j]) >= 0 {
			spec.end = j + 1
			out = append(out, spec)
			i = j
		}
	}
	return out
}

// skipCount skips a width or precision: "*" or a run of digits.
func skipCount(s string, j int) int {
	if j < len(s) && s[j] == '*' {
		return j + 1
	}
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	return j
}

// substitutePercent replaces specifiers left to right with args. When named
// is non-nil, keyed specifiers are looked up by key instead. Specifiers left
// without a value become the placeholder.
func substitutePercent(s string, args []string, named map[string]string, placeholder string) string {
	specs := scanPercent(s)
	if len(specs) == 0 {
		return s
	}

	var b strings.Builder
	pos, next := 0, 0
	for _, spec := range specs {
		b.WriteString(s[pos:spec.start])
		switch {
		case spec.escape:
			b.WriteByte('%')
		case spec.keyed && named != nil:
			if v, ok := named[spec.key]; ok {
				b.WriteString(v)
			} else {
				b.WriteString(placeholder)
			}
		case next < len(args):
			b.WriteString(args[next])
			next++
		default:
			b.WriteString(placeholder)
		}
		pos = spec.end
	}
	b.WriteString(s[pos:])
	return b.String()
}

// substituteBraces fills "{...}" fields left to right with args, ignoring
// field names and indexes. A brace preceded by a backslash is not a field;
// "{{" and "}}" render single braces. Fields left without a value become
// the placeholder, extra args are ignored.
func substituteBraces(s string, args []string, placeholder string) string {
	var b strings.Builder
	next := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{' && (i == 0 || s[i-1] != '\\'):
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				b.WriteString(s[i:])
				return b.String()
			}
			if next < len(args) {
				b.WriteString(args[next])
				next++
			} else {
				b.WriteString(placeholder)
			}
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// constString renders a constant the way Python's str() does.
func constString(k *pyast.Const) string {
	switch v := k.Value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return pyFloat(v)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case nil:
		return "None"
	}
	return ""
}

func pyFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
