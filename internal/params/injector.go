package params

import (
	"sort"
	"strings"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// Injector substitutes ${KEY} placeholders with parameter values and back.
type Injector struct {
	inject *strings.Replacer
	// reverse holds the non-empty values, longest first.
	reverse []reverseRule
}

type reverseRule struct {
	value       string
	placeholder string
}

var _ dlsync.ParameterInjector = (*Injector)(nil)

// NewInjector builds an injector over a fixed parameter set.
func NewInjector(values map[string]string) *Injector {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	var reverse []reverseRule
	for _, k := range keys {
		placeholder := Placeholder(k)
		pairs = append(pairs, placeholder, values[k])
		v := values[k]
		if strings.TrimSpace(v) == "" {
			continue
		}
		reverse = append(reverse, reverseRule{value: v, placeholder: placeholder})
	}
	sort.SliceStable(reverse, func(i, j int) bool { return len(reverse[i].value) > len(reverse[j].value) })

	return &Injector{
		inject:  strings.NewReplacer(pairs...),
		reverse: reverse,
	}
}

// Placeholder returns the template form of a parameter key.
func Placeholder(key string) string {
	return "${" + key + "}"
}

// Inject replaces placeholders in the script content.
func (i *Injector) Inject(s *dlsync.Script) {
	s.Content = i.inject.Replace(s.Content)
}

// InjectAll also injects the rollback and verify statements of migrations.
func (i *Injector) InjectAll(s *dlsync.Script) {
	i.Inject(s)
	if s.Migration != nil {
		s.Migration.Rollback = i.inject.Replace(s.Migration.Rollback)
		s.Migration.Verify = i.inject.Replace(s.Migration.Verify)
	}
}

// InjectNames returns the names with placeholders replaced, upper-cased.
func (i *Injector) InjectNames(names []string) []string {
	out := make([]string, len(names))
	for n, name := range names {
		out[n] = strings.ToUpper(i.inject.Replace(strings.TrimSpace(name)))
	}
	return out
}

// Parametrize rewrites identity fields that equal a parameter value to the
// placeholder, then replaces standalone occurrences of values in the content.
func (i *Injector) Parametrize(s *dlsync.Script) {
	s.Database = i.parametrizePart(s.Database)
	s.Schema = i.parametrizePart(s.Schema)
	s.ObjectName = i.parametrizePart(s.ObjectName)
	s.Content = i.parametrizeText(s.Content)
	if s.Migration != nil {
		s.Migration.Rollback = i.parametrizeText(s.Migration.Rollback)
		s.Migration.Verify = i.parametrizeText(s.Migration.Verify)
	}
}

// ParametrizeName parametrizes each segment of a dotted object name.
func (i *Injector) ParametrizeName(name string) string {
	parts := strings.Split(name, ".")
	for n, p := range parts {
		parts[n] = i.parametrizePart(p)
	}
	return strings.Join(parts, ".")
}

func (i *Injector) parametrizePart(part string) string {
	for _, r := range i.reverse {
		if strings.EqualFold(part, r.value) {
			return r.placeholder
		}
	}
	return part
}

func (i *Injector) parametrizeText(text string) string {
	if len(i.reverse) == 0 || text == "" {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for pos := 0; pos < len(text); {
		if pos == 0 || !isWordByte(text[pos-1]) {
			if r, ok := i.valueAt(text, pos); ok {
				b.WriteString(r.placeholder)
				pos += len(r.value)
				continue
			}
		}
		b.WriteByte(text[pos])
		pos++
	}
	return b.String()
}

// valueAt finds the longest parameter value that starts at pos and ends on a
// word boundary. Comparison ignores ASCII case.
func (i *Injector) valueAt(text string, pos int) (reverseRule, bool) {
	for _, r := range i.reverse {
		end := pos + len(r.value)
		if end > len(text) || !strings.EqualFold(text[pos:end], r.value) {
			continue
		}
		if end == len(text) || !isWordByte(text[end]) {
			return r, true
		}
	}
	return reverseRule{}, false
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
