package scroll

import "time"

// Direction is the vertical scroll direction between two samples.
type Direction uint8

const (
	// DirectionNone is reported for the first sample and for zero deltas.
	DirectionNone Direction = iota
	// DirectionUp means scrollY decreased.
	DirectionUp
	// DirectionDown means scrollY increased.
	DirectionDown
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "none"
	}
}

// Signal is the derived scroll state delivered to subscribers.
// A new value is computed for every dispatch tick.
type Signal struct {
	// ScrollX and ScrollY are the current offsets, never negative.
	ScrollX int
	ScrollY int

	// Direction is the vertical direction since the previous sample.
	Direction Direction

	// Velocity is the vertical speed in pixels per millisecond.
	// Positive when scrolling down.
	Velocity float64

	// IsScrolling is true from the first sample of a burst until the
	// quiet window elapses without a new sample.
	IsScrolling bool

	// ViewportWidth and ViewportHeight are the last observed viewport size.
	ViewportWidth  int
	ViewportHeight int

	// Timestamp is the frame time the signal was computed at.
	Timestamp time.Time
}

// computer turns consecutive raw samples into Signals.
// It only keeps what it needs for the next delta.
type computer struct {
	hasPrev   bool
	prevX     int
	prevY     int
	prevAt    time.Time
	velocity  float64
	direction Direction

	viewportW int
	viewportH int
}

// setViewport stores the viewport size used by subsequent signals.
func (c *computer) setViewport(w, h int) {
	c.viewportW = max(w, 0)
	c.viewportH = max(h, 0)
}

// sample records a new offset observed at the given time.
func (c *computer) sample(x, y int, at time.Time) Signal {
	x = max(x, 0)
	y = max(y, 0)

	if !c.hasPrev {
		c.hasPrev = true
		c.direction = DirectionNone
		c.velocity = 0
	} else {
		deltaY := y - c.prevY
		switch {
		case deltaY > 0:
			c.direction = DirectionDown
		case deltaY < 0:
			c.direction = DirectionUp
		default:
			c.direction = DirectionNone
		}

		// Same-timestamp samples keep the previous velocity.
		if elapsed := at.Sub(c.prevAt); elapsed > 0 {
			c.velocity = float64(deltaY) / durationMillis(elapsed)
		}
	}

	c.prevX = x
	c.prevY = y
	c.prevAt = at

	return Signal{
		ScrollX:        x,
		ScrollY:        y,
		Direction:      c.direction,
		Velocity:       c.velocity,
		IsScrolling:    true,
		ViewportWidth:  c.viewportW,
		ViewportHeight: c.viewportH,
		Timestamp:      at,
	}
}

// settle produces the scroll-end signal: same position, zero velocity,
// IsScrolling false. The last direction is kept.
func (c *computer) settle(at time.Time) Signal {
	c.velocity = 0
	return Signal{
		ScrollX:        c.prevX,
		ScrollY:        c.prevY,
		Direction:      c.direction,
		Velocity:       0,
		IsScrolling:    false,
		ViewportWidth:  c.viewportW,
		ViewportHeight: c.viewportH,
		Timestamp:      at,
	}
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
