package banksync

import "fmt"

// Stage is a step of one account's sync attempt. Attempts move strictly
// forward: Pending, Fetching, Parsing, Normalizing, Reconciling, then one of
// the terminal stages.
type Stage uint8

const (
	StagePending Stage = iota
	StageFetching
	StageParsing
	StageNormalizing
	StageReconciling
	StageSucceeded
	StageFailed
)

var stageNames = [...]string{
	StagePending:     "pending",
	StageFetching:    "fetching",
	StageParsing:     "parsing",
	StageNormalizing: "normalizing",
	StageReconciling: "reconciling",
	StageSucceeded:   "succeeded",
	StageFailed:      "failed",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// ParseStage resolves a stored stage name.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sync stage %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is allowed.
func (s Stage) Terminal() bool { return s == StageSucceeded || s == StageFailed }

// attempt tracks the stage of one account's sync and rejects out-of-order
// transitions.
type attempt struct {
	stage    Stage
	failedAt Stage
	trail    []Stage
}

func newAttempt() *attempt {
	return &attempt{stage: StagePending, trail: []Stage{StagePending}}
}

// advance moves to next, which must be the stage directly after the current one.
func (a *attempt) advance(next Stage) error {
	if a.stage.Terminal() || next != a.stage+1 {
		return fmt.Errorf("illegal sync transition %s -> %s", a.stage, next)
	}
	a.stage = next
	a.trail = append(a.trail, next)
	return nil
}

// fail ends the attempt, remembering the stage it failed in.
func (a *attempt) fail() {
	if a.stage.Terminal() {
		return
	}
	a.failedAt = a.stage
	a.stage = StageFailed
	a.trail = append(a.trail, StageFailed)
}
