package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the retry-oriented classification of an error.
type Kind int

const (
	// KindUnknown marks errors matching no known pattern. Retry loops treat
	// unknown as retry-eligible.
	KindUnknown Kind = iota
	// KindTransient marks errors expected to resolve on their own with time.
	KindTransient
	// KindPermanent marks errors that retrying cannot fix.
	KindPermanent
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Rule is a named, case-insensitive pattern tested against error text.
type Rule struct {
	Name    string
	pattern *regexp.Regexp
}

// MustRule compiles a rule, panicking on an invalid pattern. Intended for
// package-level rule tables.
func MustRule(name, pattern string) Rule {
	return Rule{Name: name, pattern: regexp.MustCompile(pattern)}
}

// NewRule compiles a rule from a regular expression.
func NewRule(name, pattern string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule %q: %w", name, err)
	}

	return Rule{Name: name, pattern: re}, nil
}

// Builtin permanent patterns: conditions where a retry is provably useless.
// Matched against lower-cased text, so patterns are written lower-case.
var permanentRules = []Rule{
	MustRule("syntax", `syntax error`),
	MustRule("nil_deref", `nil pointer dereference|cannot read propert|undefined is not a|null reference`),
	MustRule("type", `type error|type mismatch|invalid type`),
	MustRule("access", `permission denied|access denied|unauthorized|forbidden`),
	MustRule("bad_request", `404[^0-9].*(invalid|missing)|(invalid|missing) (request )?param`),
}

// Builtin transient patterns: conditions expected to clear with time.
var transientRules = []Rule{
	MustRule("conn_reset", `connection reset|econnreset|broken pipe|unexpected eof`),
	MustRule("conn_refused", `connection refused|econnrefused`),
	MustRule("timeout", `timeout|timed out|etimedout|deadline exceeded`),
	MustRule("dns", `enotfound|no such host|dns`),
	MustRule("rate_limit", `rate limit|too many requests`),
	MustRule("http_5xx", `\b429\b|\b502\b|\b503\b|\b504\b`),
	MustRule("network", `network|temporar|unavailable`),
}

// Classifier maps errors to a Kind using ordered rule sets. Permanent rules
// are always evaluated before transient ones.
type Classifier struct {
	permanent []Rule
	transient []Rule
}

// NewClassifier builds a classifier from the builtin rules plus any extras.
// Extra rules are appended after the builtins, preserving first-match-wins
// within each set.
func NewClassifier(extraPermanent, extraTransient []Rule) *Classifier {
	c := &Classifier{
		permanent: make([]Rule, 0, len(permanentRules)+len(extraPermanent)),
		transient: make([]Rule, 0, len(transientRules)+len(extraTransient)),
	}

	c.permanent = append(c.permanent, permanentRules...)
	c.permanent = append(c.permanent, extraPermanent...)
	c.transient = append(c.transient, transientRules...)
	c.transient = append(c.transient, extraTransient...)

	return c
}

var defaultClassifier = NewClassifier(nil, nil)

// Default returns the shared classifier holding only the builtin rules.
func Default() *Classifier {
	return defaultClassifier
}

// Classify maps an error to a Kind. The error message and its formatted
// cause chain are combined into one searchable string, so wrapped causes and
// any embedded trace text participate in matching. A nil error classifies as
// KindUnknown; Classify never fails.
func (c *Classifier) Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	text := strings.ToLower(fmt.Sprintf("%+v", err))

	for _, r := range c.permanent {
		if r.pattern.MatchString(text) {
			return KindPermanent
		}
	}

	for _, r := range c.transient {
		if r.pattern.MatchString(text) {
			return KindTransient
		}
	}

	return KindUnknown
}

// Classify maps an error to a Kind using the default classifier.
func Classify(err error) Kind {
	return defaultClassifier.Classify(err)
}
