package game

import (
	"strings"

	"github.com/curvy/server/utils"
)

// Player is one session's seat in a room. The player id is the session
// id; the avatar exists only while a game runs.
type Player struct {
	ID     string
	Name   string
	Color  string
	Ready  bool
	Client Client

	avatar *Avatar
}

// NewPlayer seats a client under a display name. An invalid or missing
// color gets a random readable one.
func NewPlayer(client Client, name, color string) *Player {
	if !utils.ValidColor(color) {
		color = utils.RandomColor()
	}
	return &Player{
		ID:     client.ID(),
		Name:   name,
		Color:  color,
		Client: client,
	}
}

func (p *Player) Avatar() *Avatar { return p.avatar }

// Reset drops the avatar and ready flag after a match.
func (p *Player) Reset() {
	if p.avatar != nil {
		p.avatar.Destroy()
		p.avatar = nil
	}
	p.Ready = false
}

// SetColor validates and applies a new color.
func (p *Player) SetColor(color string) bool {
	if !utils.ValidColor(color) {
		return false
	}
	p.Color = color
	return true
}

// PlayerSummary is the wire shape of a seated player.
type PlayerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Ready bool   `json:"ready"`
}

func (p *Player) Summary() PlayerSummary {
	return PlayerSummary{ID: p.ID, Name: p.Name, Color: p.Color, Ready: p.Ready}
}

// NormalizeName canonicalizes room and player names: trimmed, length
// capped, case folded for uniqueness checks.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > utils.MaxNameLength {
		name = name[:utils.MaxNameLength]
	}
	return strings.ToLower(name)
}

// DisplayName trims and caps a name without case folding.
func DisplayName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > utils.MaxNameLength {
		name = name[:utils.MaxNameLength]
	}
	return name
}
