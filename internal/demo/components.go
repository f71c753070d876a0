// Package demo holds a small game-like component set and an example project used
// by the CLI and the end-to-end tests.
package demo

import (
	"scopebind/internal/data/catalog"
	"scopebind/internal/data/scene"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/indirection"
	"sync"
)

type Enemy interface {
	Threat() int
}

type Grunt struct {
	Power int `toml:"power"`
}

func (g *Grunt) Threat() int { return g.Power }

type Boss struct {
	Power int `toml:"power"`
	Phase int `toml:"phase"`
}

func (b *Boss) Threat() int { return b.Power * (b.Phase + 1) }

// Spawner receives every enemy below its scope.
type Spawner struct {
	Rate    int     `toml:"rate"`
	Enemies []Enemy `inject:""`
}

func (s *Spawner) TotalThreat() int {
	total := 0
	for _, e := range s.Enemies {
		total += e.Threat()
	}
	return total
}

type AudioService interface {
	Play(clip string)
}

type Mixer struct {
	Channels int `toml:"channels"`

	mu     sync.Mutex
	played []string
}

func (m *Mixer) Play(clip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.played = append(m.played, clip)
}

func (m *Mixer) Played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.played...)
}

// MixerProxy stands in for a Mixer living in another context.
type MixerProxy struct {
	target AudioService
}

func (p *MixerProxy) SetTarget(target any) {
	if svc, ok := target.(AudioService); ok {
		p.target = svc
	}
}

func (p *MixerProxy) Play(clip string) {
	if p.target != nil {
		p.target.Play(clip)
	}
}

type Player struct {
	Name    string       `toml:"name"`
	Audio   AudioService `inject:""`
	Spawner *Spawner     `inject:"id=arena,optional"`
}

func (p *Player) Greet() {
	if p.Audio != nil {
		p.Audio.Play("greet:" + p.Name)
	}
}

type Palette struct {
	Colors []string `toml:"colors"`
}

// HUD takes its palette through a method site.
type HUD struct {
	Font string `toml:"font"`

	theme *Palette
}

func (h *HUD) InjectTheme(p *Palette) {
	h.theme = p
}

func (h *HUD) Theme() *Palette { return h.theme }

var _ catalog.Targeted = (*MixerProxy)(nil)

// Register adds the demo types to types, including the proxy alias the
// indirection catalog instantiates.
func Register(types *scene.TypeRegistry) {
	types.Register(binding.TypeOf[Enemy](), binding.TypeOf[AudioService]())
	types.RegisterValues(&Grunt{}, &Boss{}, &Spawner{}, &Mixer{}, &MixerProxy{}, &Player{}, &Palette{}, &HUD{})
	types.Alias(indirection.ProxyName(binding.TypeOf[*Mixer]()), binding.TypeOf[*MixerProxy]())
}

// Types returns a registry holding the demo types.
func Types() *scene.TypeRegistry {
	types := scene.NewTypeRegistry()
	Register(types)
	return types
}

