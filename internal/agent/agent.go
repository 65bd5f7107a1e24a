package agent

import (
	"errors"
	"fmt"
	"math/rand"

	"netattack-sim/internal/observation"
)

// ErrUnknownAgent is returned by New for unregistered names.
var ErrUnknownAgent = errors.New("unknown agent")

// Agent picks flat action indices from observations.
type Agent interface {
	Name() string
	// Reset prepares the agent for an episode over numActions flat actions.
	Reset(numActions int)
	// Act returns the next flat action index.
	Act(obs observation.Observation) int
}

// New builds an agent by name.
func New(name string, seed int64) (Agent, error) {
	switch name {
	case "bruteforce":
		return NewBruteForce(), nil
	case "random":
		return NewRandom(seed), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
}

// Names lists the registered agents.
func Names() []string { return []string{"bruteforce", "random"} }

// BruteForce cycles through every flat action in order, wrapping around.
type BruteForce struct {
	n    int
	next int
}

func NewBruteForce() *BruteForce { return &BruteForce{} }

func (b *BruteForce) Name() string { return "bruteforce" }

func (b *BruteForce) Reset(numActions int) {
	b.n = numActions
	b.next = 0
}

func (b *BruteForce) Act(observation.Observation) int {
	if b.n == 0 {
		return 0
	}
	a := b.next
	b.next = (b.next + 1) % b.n
	return a
}

// Random picks actions uniformly from a seeded source.
type Random struct {
	n   int
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Reset(numActions int) { r.n = numActions }

func (r *Random) Act(observation.Observation) int {
	if r.n == 0 {
		return 0
	}
	return r.rng.Intn(r.n)
}
