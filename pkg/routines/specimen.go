package routines

import (
	"time"

	"github.com/apexftc/go-auton/pkg/auto"
	"github.com/apexftc/go-auton/pkg/field"
	"github.com/apexftc/go-auton/pkg/geom"
	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/path"
)

// Specimen routine states.
const (
	Preload      auto.State = "PRELOAD"
	PreScore     auto.State = "PRE_SCORE"
	ScorePreload auto.State = "SCORE_PRELOAD"
	Pick         auto.State = "PICK"
	ResetTimer   auto.State = "RESET_TIMER"
	Unlatch      auto.State = "UNLATCH"
	Ready        auto.State = "READY"
	Pre          auto.State = "PRE"
	Score        auto.State = "SCORE"
	Park         auto.State = "PARK"
)

// Slide heights in encoder ticks.
const (
	SlidesTravel = 1300
	SlidesScore  = 1780
	SlidesPickup = 1180
)

// Path names of the specimen routine.
const (
	pathToPreload    = "navigate_to_preload"
	pathScorePreload = "score_preload"
	pathToPickup     = "navigate_to_pickup"
	pathToScore      = "navigate_to_score"
	pathScore        = "score"
	pathPark         = "park"
)

// SpecimenRoutine scores the preloaded specimen, picks a second one from
// the wall after the human player loads it, scores it and parks.
func SpecimenRoutine(a field.Alliance) auto.Routine {
	p := field.SpecimenPoses(a)
	heading := geom.Radians(180)

	curve := func(points ...geom.Pose) path.Chain {
		return path.NewBuilder().AddCurve(points...).ConstantHeading(heading).Build()
	}

	paths := map[string]path.Chain{
		pathToPreload:    curve(p.Start, p.PreloadControl, p.Preload),
		pathScorePreload: curve(p.Preload, p.ScorePreload),
		pathToPickup:     curve(p.ScorePreload, p.PickupControl, p.Pickup),
		pathToScore: path.NewBuilder().
			AddCurve(p.Pickup, p.ToScoreControl, p.ToScore).
			ConstantHeading(heading).
			ZeroPowerAccelerationMultiplier(0.75).
			PathEndVelocity(0).
			Build(),
		pathScore: curve(p.ToScore, p.Score),
		pathPark:  curve(p.Score, p.ParkControl, p.Park),
	}

	follow := []string{auto.FollowerSource}
	followSlides := []string{auto.FollowerSource, mechanism.Slides}

	steps := []auto.Step{
		{
			ID:   auto.StateInit,
			Gate: auto.GateTerminal,
			OnEnter: []auto.Action{
				auto.Preset(mechanism.Claw, mechanism.ClawClosed),
				auto.Preset(mechanism.Claw, mechanism.ClawRotated),
			},
		},
		{
			ID:   auto.StateStart,
			Gate: auto.GateImmediate,
			Actions: []auto.Action{
				auto.Preset(mechanism.Claw, mechanism.ClawRotated),
				auto.SetTarget(mechanism.Slides, SlidesTravel),
				auto.Preset(mechanism.Arm, mechanism.ArmBack),
			},
			Next: Preload,
		},
		{
			ID: Preload, Gate: auto.GateBusy, WaitFor: follow,
			Actions: []auto.Action{auto.FollowPath(pathToPreload, true)},
			Next:    PreScore,
		},
		{
			ID: PreScore, Gate: auto.GateBusy, WaitFor: follow,
			Actions: []auto.Action{auto.SetTarget(mechanism.Slides, SlidesScore)},
			Next:    ScorePreload,
		},
		{
			ID: ScorePreload, Gate: auto.GateBusy, WaitFor: followSlides,
			Actions: []auto.Action{auto.FollowPath(pathScorePreload, true)},
			Next:    Pick,
		},
		{
			ID: Pick, Gate: auto.GateBusy, WaitFor: followSlides,
			Actions: []auto.Action{
				auto.Preset(mechanism.Claw, mechanism.ClawOpen),
				auto.FollowPath(pathToPickup, true),
				auto.SetTarget(mechanism.Slides, SlidesTravel),
				auto.Preset(mechanism.Arm, mechanism.ArmPrePickup),
			},
			Next: ResetTimer,
		},
		{ID: ResetTimer, Gate: auto.GateBusy, WaitFor: follow, Next: Unlatch},
		{
			ID:      Unlatch,
			Gate:    auto.GateTimed,
			WaitFor: follow,
			Hold:    []auto.Action{auto.SetTarget(mechanism.Slides, SlidesPickup)},
			Cues: []auto.Cue{
				// Empty threshold carried over from the tuned routine.
				{At: 4500 * time.Millisecond},
				{At: 6500 * time.Millisecond, Actions: []auto.Action{
					auto.Preset(mechanism.Claw, mechanism.ClawClosed),
				}},
				{At: 10500 * time.Millisecond, Actions: []auto.Action{
					auto.Preset(mechanism.HSlides, mechanism.HSlidesUnlatched),
					auto.Preset(mechanism.Arm, mechanism.ArmPrePickup),
				}},
			},
			After: 12500 * time.Millisecond,
			Next:  Ready,
		},
		{
			ID: Ready, Gate: auto.GateBusy, WaitFor: followSlides,
			Actions: []auto.Action{
				auto.Preset(mechanism.Arm, mechanism.ArmBack),
				auto.FollowPath(pathToScore, true),
				auto.Preset(mechanism.HSlides, mechanism.HSlidesRetracted),
				auto.SetTarget(mechanism.Slides, SlidesTravel),
			},
			Next: Pre,
		},
		{
			ID: Pre, Gate: auto.GateBusy, WaitFor: followSlides,
			Actions: []auto.Action{auto.SetTarget(mechanism.Slides, SlidesScore)},
			Next:    Score,
		},
		{
			ID: Score, Gate: auto.GateBusy, WaitFor: followSlides,
			Actions: []auto.Action{auto.FollowPath(pathScore, true)},
			Next:    Park,
		},
		{
			ID: Park, Gate: auto.GateBusy, WaitFor: followSlides,
			Actions: []auto.Action{
				auto.Preset(mechanism.Claw, mechanism.ClawOpen),
				auto.Preset(mechanism.Slides, mechanism.SlidesBase),
				auto.FollowPath(pathPark, true),
			},
			Next: auto.StateIdle,
		},
		{ID: auto.StateIdle, Gate: auto.GateTerminal},
	}

	return auto.Routine{
		Name:        a.String() + "-right",
		Description: "score preload specimen, pick one from the wall, score it, park",
		StartPose:   p.Start,
		Paths:       paths,
		Steps:       steps,
		Initial:     auto.StateInit,
		Start:       auto.StateStart,
	}
}
