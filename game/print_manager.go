package game

import (
	"math/rand"

	"github.com/curvy/server/utils"
)

// PrintManager toggles an avatar's trail printing on a random tick
// countdown, carving the gaps that make the trails passable. While
// printing, the next flip lands uniformly in [0.25, 0.75] of the print
// interval; in a gap, uniformly in [0.5, 1.5] of the gap interval.
type PrintManager struct {
	avatar    *Avatar
	rng       *rand.Rand
	active    bool
	countdown int
}

func NewPrintManager(avatar *Avatar, rng *rand.Rand) *PrintManager {
	return &PrintManager{avatar: avatar, rng: rng}
}

func (m *PrintManager) Active() bool { return m.active }

// Start begins printing immediately.
func (m *PrintManager) Start() {
	if m.active {
		return
	}
	m.active = true
	m.setPrinting(true)
}

// Stop ends printing and cancels the countdown.
func (m *PrintManager) Stop() {
	if !m.active {
		return
	}
	m.active = false
	m.countdown = 0
	m.avatar.SetPrinting(false)
}

// Tick advances the countdown by one simulation tick, flipping the
// printing state when it runs out.
func (m *PrintManager) Tick() {
	if !m.active {
		return
	}
	m.countdown--
	if m.countdown <= 0 {
		m.setPrinting(!m.avatar.Printing)
	}
}

func (m *PrintManager) setPrinting(printing bool) {
	m.avatar.SetPrinting(printing)
	m.countdown = m.nextCountdown()
}

func (m *PrintManager) nextCountdown() int {
	if m.avatar.Printing {
		return int(utils.PrintInterval * (0.25 + m.rng.Float64()*0.5))
	}
	return int(utils.GapInterval * (0.5 + m.rng.Float64()))
}
