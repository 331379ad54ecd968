package game

import "math"

// Island is one cell of the world's broad-phase grid. Bodies register in
// every island their bounding box touches, so collision checks only ever
// iterate co-resident bodies.
type Island struct {
	id     string
	size   float64
	fromX  float64
	fromY  float64
	toX    float64
	toY    float64
	bodies *Collection[int, *Body]
}

// NewIsland builds the cell covering [x, x+size) x [y, y+size).
func NewIsland(id string, size, x, y float64) *Island {
	return &Island{
		id:     id,
		size:   size,
		fromX:  x,
		fromY:  y,
		toX:    x + size,
		toY:    y + size,
		bodies: NewCollection[int](func(b *Body) int { return b.ID }),
	}
}

// AddBody registers body in this island.
func (i *Island) AddBody(body *Body) {
	if i.bodies.Add(body) {
		body.islands = append(body.islands, i)
	}
}

// RemoveBody unregisters body from this island.
func (i *Island) RemoveBody(body *Body) {
	i.bodies.Remove(body)
	for n, island := range body.islands {
		if island == i {
			body.islands = append(body.islands[:n], body.islands[n+1:]...)
			break
		}
	}
}

// TestBody reports whether the probe position is free of collisions here.
func (i *Island) TestBody(probe *Body) bool {
	return i.GetBody(probe) == nil
}

// GetBody returns the first resident body overlapping the probe.
func (i *Island) GetBody(probe *Body) *Body {
	if !i.inBound(probe) {
		return nil
	}
	for _, body := range i.bodies.Items() {
		if bodiesTouch(body, probe) {
			return body
		}
	}
	return nil
}

// GetBodies returns every resident body overlapping the probe.
func (i *Island) GetBodies(probe *Body) []*Body {
	if !i.inBound(probe) {
		return nil
	}
	var out []*Body
	for _, body := range i.bodies.Items() {
		if bodiesTouch(body, probe) {
			out = append(out, body)
		}
	}
	return out
}

// Clear drops every resident body.
func (i *Island) Clear() {
	for _, body := range i.bodies.Items() {
		for n, island := range body.islands {
			if island == i {
				body.islands = append(body.islands[:n], body.islands[n+1:]...)
				break
			}
		}
	}
	i.bodies.Clear()
}

func (i *Island) inBound(b *Body) bool {
	return b.X+b.Radius > i.fromX &&
		b.X-b.Radius < i.toX &&
		b.Y+b.Radius > i.fromY &&
		b.Y-b.Radius < i.toY
}

func bodiesTouch(body, probe *Body) bool {
	return distance(body.X, body.Y, probe.X, probe.Y) < body.Radius+probe.Radius &&
		body.Match(probe)
}

func distance(fromX, fromY, toX, toY float64) float64 {
	return math.Hypot(fromX-toX, fromY-toY)
}
