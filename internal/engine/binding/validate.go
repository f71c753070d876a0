package binding

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ValidationError lists every reason a binding is ineligible for resolution.
type ValidationError struct {
	Binding *Binding
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid binding %s: %s", e.Binding, strings.Join(e.Reasons, "; "))
}

// ErrDuplicate marks a binding rejected because an identical one was declared earlier
// in the same scope.
var ErrDuplicate = errors.New("duplicate binding")

// Invalid pairs a rejected binding with its reason.
type Invalid struct {
	Binding *Binding
	Err     error
}

// Validate checks a binding for internal legality. It returns nil or a
// *ValidationError.
func Validate(b *Binding) error {
	if b == nil {
		return errors.New("nil binding")
	}
	var reasons []string
	reasons = append(reasons, b.problems...)

	if b.iface == nil && b.concrete == nil {
		reasons = append(reasons, "neither interface nor concrete type is set")
	}
	if b.iface != nil && b.iface.Kind() != reflect.Interface {
		reasons = append(reasons, fmt.Sprintf("%s is not an interface type", b.iface))
	}
	if b.iface != nil && b.concrete != nil && b.iface.Kind() == reflect.Interface && !b.concrete.Implements(b.iface) {
		reasons = append(reasons, fmt.Sprintf("%s does not implement %s", b.concrete, b.iface))
	}

	switch b.category {
	case CategoryAsset:
		if b.asset.Load == LoadNone {
			reasons = append(reasons, "asset binding has no load strategy")
		}
		if b.asset.Load.RequiresPath() && strings.TrimSpace(b.asset.Path) == "" {
			reasons = append(reasons, fmt.Sprintf("asset load %q requires a path", b.asset.Load))
		}
		if b.searchSet {
			reasons = append(reasons, "asset binding cannot declare a hierarchy search")
		}
	case CategoryComponent, CategoryGlobal:
		if b.asset.Load != LoadNone {
			reasons = append(reasons, fmt.Sprintf("%s binding cannot declare an asset source", b.category))
		}
	}

	if b.category == CategoryGlobal && b.collection {
		reasons = append(reasons, "global binding cannot be a collection")
	}

	if b.indirect {
		if b.searchSet {
			reasons = append(reasons, "indirection and hierarchy search are mutually exclusive")
		}
		if b.collection {
			reasons = append(reasons, "indirection cannot resolve a collection")
		}
		if b.category != CategoryComponent {
			reasons = append(reasons, fmt.Sprintf("indirection is not available for %s bindings", b.category))
		}
		if b.concrete == nil {
			reasons = append(reasons, "indirection requires a concrete type")
		}
	}

	if b.collection {
		requested := b.Located()
		for _, f := range b.filters {
			tf, ok := f.(TypedFilter)
			if !ok || requested == nil || tf.FilterType() == nil {
				continue
			}
			if !compatible(requested, tf.FilterType()) {
				reasons = append(reasons, fmt.Sprintf("filter %s is incompatible with %s", tf.Name(), requested))
			}
		}
	}

	if len(reasons) == 0 {
		return nil
	}
	return &ValidationError{Binding: b, Reasons: reasons}
}

// compatible reports whether some value of type a could also be of type b.
func compatible(a, b reflect.Type) bool {
	if a.AssignableTo(b) || b.AssignableTo(a) {
		return true
	}
	if a.Kind() == reflect.Interface && b.Implements(a) {
		return true
	}
	if b.Kind() == reflect.Interface && a.Kind() == reflect.Interface {
		return true
	}
	return b.Kind() == reflect.Interface && a.Implements(b)
}

// ValidateScope validates the bindings of one scope in declaration order. The first
// of several identical bindings is kept; the rest are reported with ErrDuplicate.
func ValidateScope(bindings []*Binding) (active []*Binding, invalid []Invalid) {
	seen := make(map[string]*Binding, len(bindings))
	for _, b := range bindings {
		if err := Validate(b); err != nil {
			invalid = append(invalid, Invalid{Binding: b, Err: err})
			continue
		}
		sig := b.Signature()
		if first, dup := seen[sig]; dup {
			invalid = append(invalid, Invalid{
				Binding: b,
				Err:     fmt.Errorf("%w of %s (declared at index %d)", ErrDuplicate, first, first.index),
			})
			continue
		}
		seen[sig] = b
		active = append(active, b)
	}
	return active, invalid
}
