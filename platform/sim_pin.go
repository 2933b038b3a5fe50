package platform

import "sync"

// SimPin is a GPIO output with an optional edge hook.
type SimPin struct {
	mu    sync.Mutex
	level bool
	hook  func(level bool)
	sets  int
}

func NewSimPin(initial bool) *SimPin { return &SimPin{level: initial} }

// OnSet installs fn, called after every Set with the new level.
func (p *SimPin) OnSet(fn func(level bool)) {
	p.mu.Lock()
	p.hook = fn
	p.mu.Unlock()
}

func (p *SimPin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.sets++
	fn := p.hook
	p.mu.Unlock()
	if fn != nil {
		fn(level)
	}
}

func (p *SimPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Sets counts calls to Set.
func (p *SimPin) Sets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sets
}
