package window

import (
	"fmt"
	"image"
)

const (
	// Fraction of the primary screen's usable width the overlay may occupy.
	maxWidthFraction = 0.40
	// Wider bound once a debug pass has occurred in this session.
	debugWidthFraction = 0.75
	// Height floor so the overlay never collapses to an unusable strip.
	minHeight = 200
	// Each move step covers 1/10 of the screen in the direction of travel.
	moveStepDivisor = 10
)

// Geometry is the overlay window's position and size in virtual-screen
// coordinates. It lives only in memory; nothing is persisted.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Direction of an incremental window move.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "unknown"
}

// ParseDirection maps the IPC payload string to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("unknown direction: %q", s)
}

// ClampContentSize computes the geometry for a requested content size.
// Width is capped at the allowed fraction of screen width (wider after a
// debug pass), height is raised to the floor, and the horizontal position is
// kept unless the new width would push the window off-screen.
func ClampContentSize(reqWidth, reqHeight int, cur Geometry, screen image.Rectangle, debugged bool) Geometry {
	frac := maxWidthFraction
	if debugged {
		frac = debugWidthFraction
	}
	maxWidth := int(frac * float64(screen.Dx()))

	width := reqWidth
	if width > maxWidth {
		width = maxWidth
	}
	if width < 1 {
		width = 1
	}

	height := reqHeight
	if height < minHeight {
		height = minHeight
	}

	x := cur.X
	if x+width > screen.Max.X {
		x = screen.Max.X - width
	}
	if x < screen.Min.X {
		x = screen.Min.X
	}

	return Geometry{X: x, Y: cur.Y, Width: width, Height: height}
}

// Move steps cur one increment in dir, clamped so at least half the window
// stays on-screen in the direction of travel.
func Move(cur Geometry, dir Direction, screen image.Rectangle) Geometry {
	stepX := screen.Dx() / moveStepDivisor
	stepY := screen.Dy() / moveStepDivisor

	next := cur
	switch dir {
	case Left:
		next.X -= stepX
		if minX := screen.Min.X - cur.Width/2; next.X < minX {
			next.X = minX
		}
	case Right:
		next.X += stepX
		if maxX := screen.Max.X - cur.Width/2; next.X > maxX {
			next.X = maxX
		}
	case Up:
		next.Y -= stepY
		if minY := screen.Min.Y - cur.Height/2; next.Y < minY {
			next.Y = minY
		}
	case Down:
		next.Y += stepY
		if maxY := screen.Max.Y - cur.Height/2; next.Y > maxY {
			next.Y = maxY
		}
	}
	return next
}

// initialGeometry centers the overlay near the top of the screen at the
// default width bound.
func initialGeometry(screen image.Rectangle) Geometry {
	width := int(maxWidthFraction * float64(screen.Dx()))
	if width < 1 {
		width = 1
	}
	return Geometry{
		X:      screen.Min.X + (screen.Dx()-width)/2,
		Y:      screen.Min.Y + screen.Dy()/20,
		Width:  width,
		Height: minHeight,
	}
}
