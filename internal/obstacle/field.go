// Package obstacle holds the walls and portals a walker moves among.
package obstacle

import (
	"fmt"

	"github.com/misterem/RandomWalker/internal/geometry"
)

// WallID and PortalID are stable handles assigned on insertion.
type (
	WallID   int
	PortalID int
)

// Portal pairs an entry boundary with the exit point a walker reappears at.
type Portal struct {
	Entry geometry.Segment  `json:"entry" yaml:"entry"`
	Exit  geometry.Position `json:"exit" yaml:"exit"`
}

// Field owns every wall and portal. It is mutated only between simulation runs;
// during a run it is read-only and may be shared by any number of walkers.
type Field struct {
	walls   []geometry.Segment
	portals []Portal
}

// NewField returns an empty field.
func NewField() *Field {
	return &Field{}
}

// AddWall places a wall and returns its handle.
func (f *Field) AddWall(s geometry.Segment) (WallID, error) {
	if err := s.Validate(); err != nil {
		return 0, fmt.Errorf("add wall: %w", err)
	}
	f.walls = append(f.walls, s)
	return WallID(len(f.walls) - 1), nil
}

// AddPortal places a portal and returns its handle.
func (f *Field) AddPortal(p Portal) (PortalID, error) {
	if err := p.Entry.Validate(); err != nil {
		return 0, fmt.Errorf("add portal entry: %w", err)
	}
	if !p.Exit.Finite() {
		return 0, fmt.Errorf("add portal exit: %w", geometry.ErrNonFinite)
	}
	f.portals = append(f.portals, p)
	return PortalID(len(f.portals) - 1), nil
}

// FirstWall returns the first wall, in insertion order, that s crosses.
func (f *Field) FirstWall(s geometry.Segment) (WallID, bool) {
	if f == nil {
		return 0, false
	}
	for i, w := range f.walls {
		if geometry.Intersects(w, s) {
			return WallID(i), true
		}
	}
	return 0, false
}

// FirstPortal returns the first portal, in insertion order, whose entry s crosses.
func (f *Field) FirstPortal(s geometry.Segment) (PortalID, bool) {
	if f == nil {
		return 0, false
	}
	for i, p := range f.portals {
		if geometry.Intersects(p.Entry, s) {
			return PortalID(i), true
		}
	}
	return 0, false
}

// Wall looks up a wall by handle.
func (f *Field) Wall(id WallID) (geometry.Segment, bool) {
	if f == nil || id < 0 || int(id) >= len(f.walls) {
		return geometry.Segment{}, false
	}
	return f.walls[id], true
}

// Portal looks up a portal by handle.
func (f *Field) Portal(id PortalID) (Portal, bool) {
	if f == nil || id < 0 || int(id) >= len(f.portals) {
		return Portal{}, false
	}
	return f.portals[id], true
}

// Walls returns a copy of every wall in insertion order.
func (f *Field) Walls() []geometry.Segment {
	if f == nil {
		return nil
	}
	return append([]geometry.Segment(nil), f.walls...)
}

// Portals returns a copy of every portal in insertion order.
func (f *Field) Portals() []Portal {
	if f == nil {
		return nil
	}
	return append([]Portal(nil), f.portals...)
}
