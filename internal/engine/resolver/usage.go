package resolver

import (
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/hierarchy"
)

// Usage counts how often each valid binding won a resolution step.
type Usage struct {
	wins  map[*binding.Binding]int
	order []tracked
}

type tracked struct {
	scope   *hierarchy.Scope
	binding *binding.Binding
}

func NewUsage() *Usage {
	return &Usage{wins: make(map[*binding.Binding]int)}
}

// Track registers a valid binding. Tracking a binding twice has no effect.
func (u *Usage) Track(scope *hierarchy.Scope, b *binding.Binding) {
	if _, ok := u.wins[b]; ok {
		return
	}
	u.wins[b] = 0
	u.order = append(u.order, tracked{scope: scope, binding: b})
}

func (u *Usage) MarkUsed(b *binding.Binding) {
	if _, ok := u.wins[b]; ok {
		u.wins[b]++
	}
}

func (u *Usage) Wins(b *binding.Binding) int {
	return u.wins[b]
}

// Unused returns the tracked bindings that never won, in tracking order.
func (u *Usage) Unused() []*binding.Binding {
	var out []*binding.Binding
	for _, t := range u.order {
		if u.wins[t.binding] == 0 {
			out = append(out, t.binding)
		}
	}
	return out
}
