package game

// Trail tracks the last deposited point so the avatar knows when it has
// moved far enough to drop the next one. The deposited bodies themselves
// live in the world; only the anchor is kept here.
type Trail struct {
	lastX    float64
	lastY    float64
	anchored bool
}

// Anchor records the latest deposit position.
func (t *Trail) Anchor(x, y float64) {
	t.lastX = x
	t.lastY = y
	t.anchored = true
}

// Due reports whether a point should be deposited at (x, y): always for
// the first point after a gap, then whenever the avatar has moved at
// least its radius from the anchor.
func (t *Trail) Due(x, y, radius float64) bool {
	if !t.anchored {
		return true
	}
	return distance(t.lastX, t.lastY, x, y) >= radius
}

// Last returns the anchor point.
func (t *Trail) Last() (float64, float64, bool) {
	return t.lastX, t.lastY, t.anchored
}

// Clear drops the anchor, ending the current trail segment.
func (t *Trail) Clear() {
	t.lastX = 0
	t.lastY = 0
	t.anchored = false
}
