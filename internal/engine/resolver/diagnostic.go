package resolver

import (
	"fmt"
	"strings"
)

// Class classifies a diagnostic produced during a run.
type Class int

const (
	ClassInvalidBinding Class = iota
	ClassMissingBinding
	ClassMissingDependency
	ClassMissingDependencies
	ClassMissingGlobalObject
	ClassUnusedBinding
	ClassFilterException
	ClassDeclarationException
	ClassWriteException
	ClassPendingIndirection
)

var classNames = [...]string{
	ClassInvalidBinding:       "InvalidBinding",
	ClassMissingBinding:       "MissingBinding",
	ClassMissingDependency:    "MissingDependency",
	ClassMissingDependencies:  "MissingDependencies",
	ClassMissingGlobalObject:  "MissingGlobalObject",
	ClassUnusedBinding:        "UnusedBinding",
	ClassFilterException:      "FilterException",
	ClassDeclarationException: "DeclarationException",
	ClassWriteException:       "WriteException",
	ClassPendingIndirection:   "PendingIndirection",
}

// Classes lists every class in reporting order.
func Classes() []Class {
	out := make([]Class, len(classNames))
	for i := range classNames {
		out[i] = Class(i)
	}
	return out
}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return classNames[c]
}

func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Class) UnmarshalText(text []byte) error {
	for i, name := range classNames {
		if strings.EqualFold(name, string(text)) {
			*c = Class(i)
			return nil
		}
	}
	return fmt.Errorf("unknown diagnostic class %q", text)
}

// Severity of the class: UnusedBinding warns, PendingIndirection informs, the rest
// are errors.
func (c Class) Severity() Severity {
	switch c {
	case ClassUnusedBinding:
		return SeverityWarning
	case ClassPendingIndirection:
		return SeverityInfo
	default:
		return SeverityError
	}
}

// Suppressible reports whether an optional site hides the class.
func (c Class) Suppressible() bool {
	switch c {
	case ClassMissingBinding, ClassMissingDependency, ClassMissingDependencies, ClassMissingGlobalObject:
		return true
	default:
		return false
	}
}

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic carries enough context to render a message without knowing the host.
type Diagnostic struct {
	Class    Class    `json:"class"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Scope    string   `json:"scope,omitempty"`
	Site     string   `json:"site,omitempty"`
	Binding  string   `json:"binding,omitempty"`
	Rejected []string `json:"rejected,omitempty"`
}

func newDiagnostic(class Class, format string, args ...any) *Diagnostic {
	return &Diagnostic{Class: class, Severity: class.Severity(), Message: fmt.Sprintf(format, args...)}
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Class.String())
	if d.Site != "" {
		sb.WriteString(" at ")
		sb.WriteString(d.Site)
	} else if d.Scope != "" {
		sb.WriteString(" in ")
		sb.WriteString(d.Scope)
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	if len(d.Rejected) > 0 {
		sb.WriteString(" (rejected by context: ")
		sb.WriteString(strings.Join(d.Rejected, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}
