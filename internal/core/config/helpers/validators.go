package helpers

import (
	"path"
	"strings"

	"github.com/gobwas/glob"
)

func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]{}")
}

// CompilePattern compiles a slash-separated file glob.
func CompilePattern(pattern string) (glob.Glob, error) {
	return glob.Compile(pattern, '/')
}

// PatternsOverlap reports whether some path could match both globs. It compares the
// literal prefixes and then probes each pattern with a sample of the other.
func PatternsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	aPrefix := wildcardPrefix(a)
	bPrefix := wildcardPrefix(b)
	if !strings.HasPrefix(aPrefix, bPrefix) && !strings.HasPrefix(bPrefix, aPrefix) {
		return false
	}
	ga, errA := CompilePattern(a)
	gb, errB := CompilePattern(b)
	if errA != nil || errB != nil {
		return true
	}
	return gb.Match(wildcardSample(a)) || ga.Match(wildcardSample(b))
}

func wildcardPrefix(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[]{}")
	if idx == -1 {
		return pattern
	}
	return pattern[:idx]
}

// wildcardSample builds one concrete path matched by pattern. Alternations take
// their first branch.
func wildcardSample(pattern string) string {
	var sample strings.Builder
	inSet, inAlt, skipping := false, false, false
	for _, ch := range pattern {
		switch {
		case ch == '[':
			inSet = true
			sample.WriteRune('x')
		case ch == ']':
			inSet = false
		case inSet:
			continue
		case ch == '{':
			inAlt = true
		case ch == '}':
			inAlt, skipping = false, false
		case skipping:
			continue
		case inAlt && ch == ',':
			skipping = true
		case ch == '*' || ch == '?':
			sample.WriteRune('x')
		default:
			sample.WriteRune(ch)
		}
	}
	return path.Clean(sample.String())
}
