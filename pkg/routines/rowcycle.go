package routines

import (
	"fmt"
	"strings"
	"time"

	"github.com/apexftc/go-auton/pkg/auto"
	"github.com/apexftc/go-auton/pkg/field"
	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/path"
)

// Finish is the last moving step of a row-cycle routine.
const Finish auto.State = "FINISH"

// Shooting sequence timings.
const (
	LocalizeDelay = 500 * time.Millisecond
	FeedTime      = 350 * time.Millisecond
	LaunchTime    = 600 * time.Millisecond
	AdvanceTime   = 300 * time.Millisecond

	// BallsPerVolley is the spindexer capacity.
	BallsPerVolley = 3
)

// shootSteps returns the volley fired at the scoring pose. The first step
// waits for the follower to arrive; each ball is fed, launched and the
// spindexer turned to the next slot, all on the action timer.
func shootSteps(tag string) []auto.Step {
	id := func(kind string, ball int) auto.State {
		if ball == 0 {
			return auto.State(kind + "_" + tag)
		}
		return auto.State(fmt.Sprintf("%s_%s_%d", kind, tag, ball))
	}
	steps := []auto.Step{
		{
			ID: id("ARRIVE", 0), Gate: auto.GateBusy, WaitFor: []string{auto.FollowerSource},
			Actions: []auto.Action{auto.Preset(mechanism.Intake, mechanism.IntakeStop)},
		},
		{
			ID: id("LOCALIZE", 0), Gate: auto.GateTimed, After: LocalizeDelay,
			OnEnter: []auto.Action{auto.Preset(mechanism.Spindexer, mechanism.SpindexerSlot(1))},
		},
	}
	for ball := 1; ball <= BallsPerVolley; ball++ {
		steps = append(steps,
			auto.Step{
				ID: id("FEED", ball), Gate: auto.GateTimed, After: FeedTime,
				OnEnter: []auto.Action{auto.Preset(mechanism.Transfer, mechanism.TransferFeed)},
			},
			auto.Step{
				ID: id("LAUNCH", ball), Gate: auto.GateTimed, After: LaunchTime,
				OnEnter: []auto.Action{auto.Preset(mechanism.Outtake, mechanism.OuttakeLaunch)},
			},
		)
		if ball == BallsPerVolley {
			last := &steps[len(steps)-1]
			last.Actions = []auto.Action{
				auto.Preset(mechanism.Outtake, mechanism.OuttakeStop),
				auto.Preset(mechanism.Transfer, mechanism.TransferRest),
			}
			break
		}
		steps = append(steps, auto.Step{
			ID: id("ADVANCE", ball), Gate: auto.GateTimed, After: AdvanceTime,
			OnEnter: []auto.Action{
				auto.Preset(mechanism.Outtake, mechanism.OuttakeStop),
				auto.Preset(mechanism.Transfer, mechanism.TransferRest),
				auto.Preset(mechanism.Spindexer, mechanism.SpindexerSlot(ball+1)),
			},
		})
	}
	return steps
}

// RowCycleRoutine drives from the start tile to the scoring pose with the
// intake running and fires a volley. Then for each of the first rows it
// sweeps the row with the intake running, returns and fires again.
func RowCycleRoutine(a field.Alliance, s field.Start, rows int) auto.Routine {
	p := field.RowCyclePoses(a, s)
	if rows < 0 {
		rows = 0
	}
	if rows > len(p.Rows) {
		rows = len(p.Rows)
	}

	paths := map[string]path.Chain{
		"start_to_score": path.Line(p.Start, p.Score),
	}
	follow := []string{auto.FollowerSource}

	steps := []auto.Step{
		{ID: auto.StateInit, Gate: auto.GateTerminal},
	}
	// Each step's Next is patched once the following step exists.
	add := func(st auto.Step) {
		if n := len(steps); n > 1 {
			steps[n-1].Next = st.ID
		}
		steps = append(steps, st)
	}

	add(auto.Step{
		ID:   auto.StateStart,
		Gate: auto.GateImmediate,
		Actions: []auto.Action{
			auto.Preset(mechanism.Intake, mechanism.IntakeCollect),
			auto.FollowPath("start_to_score", false),
		},
	})
	for _, st := range shootSteps("SCORE") {
		add(st)
	}

	for _, row := range p.Rows[:rows] {
		toRow := fmt.Sprintf("score_to_%s", strings.ToLower(row.Name))
		sweep := fmt.Sprintf("%s_intake", strings.ToLower(row.Name))
		back := fmt.Sprintf("%s_to_score", strings.ToLower(row.Name))
		paths[toRow] = path.Line(p.Score, row.Start)
		paths[sweep] = path.Line(row.Start, row.End)
		paths[back] = path.Line(row.End, p.Score)

		add(auto.Step{
			ID: auto.State("TO_" + row.Name), Gate: auto.GateBusy, WaitFor: follow,
			Actions: []auto.Action{auto.FollowPath(toRow, false)},
		})
		add(auto.Step{
			ID: auto.State("INTAKE_" + row.Name), Gate: auto.GateBusy, WaitFor: follow,
			Actions: []auto.Action{
				auto.Preset(mechanism.Intake, mechanism.IntakeCollect),
				auto.FollowPath(sweep, false),
			},
		})
		add(auto.Step{
			ID: auto.State("RETURN_" + row.Name), Gate: auto.GateBusy, WaitFor: follow,
			Actions: []auto.Action{
				auto.Preset(mechanism.Intake, mechanism.IntakeStop),
				auto.FollowPath(back, false),
			},
		})
		for _, st := range shootSteps(row.Name) {
			add(st)
		}
	}

	add(auto.Step{ID: Finish, Gate: auto.GateBusy, WaitFor: follow})
	add(auto.Step{ID: auto.StateIdle, Gate: auto.GateTerminal})

	return auto.Routine{
		Name:        fmt.Sprintf("%s-%s-%d", a, s, rows),
		Description: fmt.Sprintf("shoot the preload, then cycle %d row(s) through the intake", rows),
		StartPose:   p.Start,
		Paths:       paths,
		Steps:       steps,
		Initial:     auto.StateInit,
		Start:       auto.StateStart,
	}
}
