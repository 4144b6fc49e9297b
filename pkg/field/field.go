// Package field names the poses autonomous routines are built from.
//
// Every function returns fresh values. Routines never share a pose by
// reference, so tuning one routine cannot move another.
package field

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apexftc/go-auton/pkg/geom"
)

// ErrUnknownAlliance is returned by ParseAlliance.
var ErrUnknownAlliance = errors.New("field: unknown alliance")

// Alliance is the side of the field a robot plays for.
type Alliance int

const (
	Blue Alliance = iota
	Red
)

func (a Alliance) String() string {
	switch a {
	case Blue:
		return "blue"
	case Red:
		return "red"
	default:
		return fmt.Sprintf("Alliance(%d)", int(a))
	}
}

// ParseAlliance accepts "blue" or "red" in any case.
func ParseAlliance(s string) (Alliance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blue":
		return Blue, nil
	case "red":
		return Red, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlliance, s)
	}
}

// Place returns p for blue and its mirror across the field centre line
// for red. Poses are authored from the blue side.
func (a Alliance) Place(p geom.Pose) geom.Pose {
	if a == Red {
		return p.MirrorX()
	}
	return p
}

// Start is the starting tile along the alliance wall.
type Start int

const (
	Bottom Start = iota
	Top
)

func (s Start) String() string {
	if s == Top {
		return "top"
	}
	return "bottom"
}

// Row is one line of game pieces the intake sweeps.
type Row struct {
	Name  string
	Start geom.Pose
	End   geom.Pose
}

// RowCycle holds the poses of the row-cycle routines.
type RowCycle struct {
	Start geom.Pose
	Score geom.Pose
	// Rows in pickup order: top, middle, bottom.
	Rows []Row
}

// RowCyclePoses returns the row-cycle poses for an alliance and start tile.
func RowCyclePoses(a Alliance, s Start) RowCycle {
	start := geom.PoseDeg(56, 16, 180)
	if s == Top {
		start = geom.PoseDeg(56, 88, 180)
	}
	rows := []Row{
		{Name: "TOP", Start: geom.PoseDeg(40, 84, 180), End: geom.PoseDeg(20, 84, 180)},
		{Name: "MIDDLE", Start: geom.PoseDeg(40, 60, 180), End: geom.PoseDeg(20, 60, 180)},
		{Name: "BOTTOM", Start: geom.PoseDeg(40, 36, 180), End: geom.PoseDeg(20, 36, 180)},
	}
	for i := range rows {
		rows[i].Start = a.Place(rows[i].Start)
		rows[i].End = a.Place(rows[i].End)
	}
	return RowCycle{
		Start: a.Place(start),
		Score: a.Place(geom.PoseDeg(48, 48, 180)),
		Rows:  rows,
	}
}

// Specimen holds the poses of the specimen routine: score the preload on
// the chamber, pick a second specimen from the wall, score it and park.
type Specimen struct {
	Start          geom.Pose
	PreloadControl geom.Pose
	Preload        geom.Pose
	ScorePreload   geom.Pose
	PickupControl  geom.Pose
	Pickup         geom.Pose
	ToScoreControl geom.Pose
	ToScore        geom.Pose
	Score          geom.Pose
	ParkControl    geom.Pose
	Park           geom.Pose
}

// SpecimenPoses returns the specimen routine poses for an alliance.
func SpecimenPoses(a Alliance) Specimen {
	return Specimen{
		Start:          a.Place(geom.PoseDeg(9, 60, 180)),
		PreloadControl: a.Place(geom.PoseDeg(24, 68, 180)),
		Preload:        a.Place(geom.PoseDeg(30, 72, 180)),
		ScorePreload:   a.Place(geom.PoseDeg(38, 72, 180)),
		PickupControl:  a.Place(geom.PoseDeg(24, 40, 180)),
		Pickup:         a.Place(geom.PoseDeg(12, 30, 180)),
		ToScoreControl: a.Place(geom.PoseDeg(24, 56, 180)),
		ToScore:        a.Place(geom.PoseDeg(30, 70, 180)),
		Score:          a.Place(geom.PoseDeg(38, 70, 180)),
		ParkControl:    a.Place(geom.PoseDeg(24, 40, 180)),
		Park:           a.Place(geom.PoseDeg(10, 20, 180)),
	}
}
