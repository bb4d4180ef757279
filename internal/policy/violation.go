// Package policy decides whether LLM-generated analysis snippets may run.
// The gate works on a parsed representation of the code, never on substring
// matches: imports are checked against a fixed allowlist and the statement
// tree is walked against an allowlist of permitted constructs. Violations are
// collected exhaustively so a denial can name every reason at once.
package policy

import "fmt"

// ViolationKind categorizes why a snippet was rejected.
type ViolationKind int

const (
	ViolationParseError ViolationKind = iota
	ViolationDisallowedImport
	ViolationDisallowedName
	ViolationDisallowedCall
	ViolationDisallowedStatement
	ViolationDisallowedAssignment
	ViolationDisallowedAttribute
	ViolationUnboundedLoop
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationParseError:
		return "parse_error"
	case ViolationDisallowedImport:
		return "disallowed_import"
	case ViolationDisallowedName:
		return "disallowed_name"
	case ViolationDisallowedCall:
		return "disallowed_call"
	case ViolationDisallowedStatement:
		return "disallowed_statement"
	case ViolationDisallowedAssignment:
		return "disallowed_assignment"
	case ViolationDisallowedAttribute:
		return "disallowed_attribute"
	case ViolationUnboundedLoop:
		return "unbounded_loop"
	default:
		return "unknown"
	}
}

// Violation describes a single reason a snippet may not run.
type Violation struct {
	Kind     ViolationKind
	Location string // snippet-relative line, empty when unknown
	Message  string
}

func (v Violation) String() string {
	if v.Location == "" {
		return fmt.Sprintf("%s: %s", v.Kind, v.Message)
	}
	return fmt.Sprintf("%s at %s: %s", v.Kind, v.Location, v.Message)
}

// Verdict is the gate's decision for one snippet. A snippet with any
// violation is never executed.
type Verdict struct {
	Allowed    bool
	Violations []Violation
}

// Reasons renders every violation for display and audit records.
func (v *Verdict) Reasons() []string {
	out := make([]string, len(v.Violations))
	for i, viol := range v.Violations {
		out[i] = viol.String()
	}
	return out
}
