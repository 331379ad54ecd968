package game

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/curvy/server/utils"
)

// World partitions the square board into a grid of islands and answers
// broad-phase collision queries. A body is registered in the islands
// under the four corners of its bounding box; with the island side kept
// at least twice the largest body radius, any two overlapping bodies
// share an island.
type World struct {
	Size       float64
	islands    *Collection[string, *Island]
	islandSize float64
	active     bool
	bodyCount  int
	rng        *rand.Rand
}

// NewWorld builds a world of the given side. A zero island count picks
// one island per IslandGridSize world units.
func NewWorld(size float64, islandCount int, rng *rand.Rand) *World {
	if islandCount <= 0 {
		islandCount = int(math.Round(size / utils.IslandGridSize))
		if islandCount < 1 {
			islandCount = 1
		}
	}

	w := &World{
		Size:       size,
		islands:    NewCollection[string](func(i *Island) string { return i.id }),
		islandSize: size / float64(islandCount),
		rng:        rng,
	}

	for y := 0; y < islandCount; y++ {
		for x := 0; x < islandCount; x++ {
			id := fmt.Sprintf("%d:%d", x, y)
			w.islands.Add(NewIsland(id, w.islandSize, float64(x)*w.islandSize, float64(y)*w.islandSize))
		}
	}

	return w
}

// Active reports whether bodies are currently indexed.
func (w *World) Active() bool { return w.active }

// Activate enables indexing and queries.
func (w *World) Activate() { w.active = true }

// Clear drops every body and deactivates the world.
func (w *World) Clear() {
	w.active = false
	w.bodyCount = 0
	for _, island := range w.islands.Items() {
		island.Clear()
	}
}

func (w *World) islandByPoint(x, y float64) *Island {
	ix := int(x / w.islandSize)
	iy := int(y / w.islandSize)
	island, _ := w.islands.GetByID(fmt.Sprintf("%d:%d", ix, iy))
	return island
}

// AddBody registers body in every island its bounding box touches.
func (w *World) AddBody(body *Body) {
	if !w.active {
		return
	}
	body.ID = w.bodyCount
	w.bodyCount++
	w.addBodyByPoint(body, body.X-body.Radius, body.Y-body.Radius)
	w.addBodyByPoint(body, body.X+body.Radius, body.Y-body.Radius)
	w.addBodyByPoint(body, body.X-body.Radius, body.Y+body.Radius)
	w.addBodyByPoint(body, body.X+body.Radius, body.Y+body.Radius)
}

func (w *World) addBodyByPoint(body *Body, x, y float64) {
	if island := w.islandByPoint(x, y); island != nil {
		island.AddBody(body)
	}
}

// RemoveBody unregisters body from every island it occupies.
func (w *World) RemoveBody(body *Body) {
	if !w.active {
		return
	}
	for len(body.islands) > 0 {
		body.islands[len(body.islands)-1].RemoveBody(body)
	}
}

// GetBody returns any body overlapping the probe, or nil.
func (w *World) GetBody(probe *Body) *Body {
	for _, corner := range w.corners(probe) {
		if island := w.islandByPoint(corner[0], corner[1]); island != nil {
			if body := island.GetBody(probe); body != nil {
				return body
			}
		}
	}
	return nil
}

// GetBodies returns every body overlapping the probe, deduplicated.
func (w *World) GetBodies(probe *Body) []*Body {
	seen := make(map[int]bool)
	var out []*Body
	for _, corner := range w.corners(probe) {
		island := w.islandByPoint(corner[0], corner[1])
		if island == nil {
			continue
		}
		for _, body := range island.GetBodies(probe) {
			if !seen[body.ID] {
				seen[body.ID] = true
				out = append(out, body)
			}
		}
	}
	return out
}

// TestBody reports whether the probe position is free. Points outside
// the board test as occupied.
func (w *World) TestBody(probe *Body) bool {
	for _, corner := range w.corners(probe) {
		island := w.islandByPoint(corner[0], corner[1])
		if island == nil || !island.TestBody(probe) {
			return false
		}
	}
	return true
}

func (w *World) corners(b *Body) [4][2]float64 {
	return [4][2]float64{
		{b.X - b.Radius, b.Y - b.Radius},
		{b.X + b.Radius, b.Y - b.Radius},
		{b.X - b.Radius, b.Y + b.Radius},
		{b.X + b.Radius, b.Y + b.Radius},
	}
}

// GetRandomPosition samples a free position at least radius+border*size
// from walls and from any indexed body.
func (w *World) GetRandomPosition(radius, border float64) (float64, float64) {
	margin := radius + border*w.Size
	probe := NewBody(w.randomPoint(margin), w.randomPoint(margin), margin)
	for attempts := 0; !w.TestBody(probe) && attempts < 1000; attempts++ {
		probe.X = w.randomPoint(margin)
		probe.Y = w.randomPoint(margin)
	}
	return probe.X, probe.Y
}

// GetRandomDirection samples a heading from (x, y) that keeps at least
// tolerance*size of runway before a wall.
func (w *World) GetRandomDirection(x, y, tolerance float64) float64 {
	direction := w.randomAngle()
	margin := tolerance * w.Size
	for attempts := 0; !w.directionValid(direction, x, y, margin) && attempts < 100; attempts++ {
		direction = w.randomAngle()
	}
	return direction
}

func (w *World) directionValid(angle, x, y, margin float64) bool {
	quarter := math.Pi / 2
	for i := 0; i < 4; i++ {
		from := quarter * float64(i)
		to := quarter * float64(i+1)
		if angle < from || angle >= to {
			continue
		}
		if hypotenuse(angle-from, w.distanceToBorder(i, x, y)) < margin {
			return false
		}
		if hypotenuse(to-angle, w.distanceToBorder((i+1)%4, x, y)) < margin {
			return false
		}
		return true
	}
	return true
}

func hypotenuse(angle, adjacent float64) float64 {
	cos := math.Cos(angle)
	if math.Abs(cos) < 0.001 {
		return math.Inf(1)
	}
	return adjacent / cos
}

func (w *World) distanceToBorder(border int, x, y float64) float64 {
	switch border {
	case 0:
		return w.Size - x
	case 1:
		return w.Size - y
	case 2:
		return x
	case 3:
		return y
	}
	return 0
}

// GetBoundIntersect returns the wall contact point when the body is
// within margin of a border, or ok=false.
func (w *World) GetBoundIntersect(body *Body, margin float64) (float64, float64, bool) {
	switch {
	case body.X-margin < 0:
		return 0, body.Y, true
	case body.X+margin > w.Size:
		return w.Size, body.Y, true
	case body.Y-margin < 0:
		return body.X, 0, true
	case body.Y+margin > w.Size:
		return body.X, w.Size, true
	}
	return 0, 0, false
}

// GetOpposite maps a wall contact point to the opposite edge, used to
// wrap avatars in borderless mode.
func (w *World) GetOpposite(x, y float64) (float64, float64) {
	switch {
	case x == 0:
		return w.Size, y
	case x == w.Size:
		return 0, y
	case y == 0:
		return x, w.Size
	case y == w.Size:
		return x, 0
	}
	return x, y
}

func (w *World) randomPoint(margin float64) float64 {
	return margin + w.rng.Float64()*(w.Size-margin*2)
}

func (w *World) randomAngle() float64 {
	return w.rng.Float64() * math.Pi * 2
}
