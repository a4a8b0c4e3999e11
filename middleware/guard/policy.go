package guard

import (
	"strings"

	"github.com/gobwas/glob"
)

// Policy classifies a route.
type Policy int

const (
	// PolicyPublic passes every request, authenticated or not
	PolicyPublic Policy = iota
	// PolicyAuthenticated requires any valid session
	PolicyAuthenticated
	// PolicyAdmin requires a valid session carrying the admin role
	PolicyAdmin
)

func (p Policy) String() string {
	switch p {
	case PolicyAuthenticated:
		return "authenticated"
	case PolicyAdmin:
		return "admin"
	default:
		return "public"
	}
}

// Rule maps a path pattern to a policy. Patterns use glob syntax with '/'
// as separator: "/admin/**" covers the whole admin surface, "/news/*" a
// single segment. Rules are evaluated in order; first match wins.
type Rule struct {
	Pattern string
	Policy  Policy
}

type compiledRule struct {
	matcher glob.Glob
	policy  Policy
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		g, err := glob.Compile(NormalizePath(r.Pattern), '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{matcher: g, policy: r.Policy})
	}
	return compiled, nil
}

// NormalizePath lower-cases and trims the trailing slash so policy checks
// cannot be dodged with URL casing or a trailing "/".
func NormalizePath(path string) string {
	p := strings.ToLower(strings.TrimSpace(path))
	if p == "" {
		return "/"
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// policyFor returns the first matching rule's policy. Unmatched paths fall
// back to the configured default, which is PolicyPublic unless overridden.
func policyFor(rules []compiledRule, def Policy, path string) Policy {
	normalized := NormalizePath(path)
	for _, r := range rules {
		if r.matcher.Match(normalized) {
			return r.policy
		}
	}
	return def
}
