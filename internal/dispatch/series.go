package dispatch

import (
	"fmt"
	"time"

	"github.com/vovakirdan/cordon/internal/config"
	"github.com/vovakirdan/cordon/internal/world"
)

// interceptGap is the simulated time between two roadblock attempts
// on the same pursuit: the target escapes, dispatch picks a new
// intercept point further up the road.
const interceptGap = 90 * time.Second

// Series runs consecutive deployments against one pursuit, escalating
// the roadblock level as the chase drags on or turns lethal. Each
// deployment gets a fresh world; the rand, saver and observer are
// shared so a seeded series replays identically.
type Series struct {
	deps   Deps
	params Params
	count  int
	levels *config.LevelManager
}

// NewSeries prepares count deployments starting at p.Level.
func NewSeries(deps Deps, p Params, count int) *Series {
	deps.fill()
	p.fill()
	if count < 1 {
		count = 1
	}
	lm := config.NewLevelManager(deps.Config)
	lm.SetInitialLevel(p.Level)
	return &Series{deps: deps, params: p, count: count, levels: lm}
}

// SetEscalation toggles automatic level escalation. On by default.
func (s *Series) SetEscalation(on bool) { s.levels.SetEscalation(on) }

// Run executes the deployments back to back and returns their records.
// onDeployment, when set, is called after each one with its ordinal.
// Elapsed pursuit time is simulated time, so the escalation schedule
// does not depend on TimeScale.
func (s *Series) Run(onDeployment func(n int, rec Record)) ([]Record, error) {
	records := make([]Record, 0, s.count)
	var elapsed time.Duration
	var lethal bool

	for n := 1; n <= s.count; n++ {
		p := s.params
		p.Level = s.levels.Level(elapsed, lethal)

		deps := s.deps
		deps.World = world.NewSim()

		sim, err := NewSimulation(deps, p)
		if err != nil {
			return records, fmt.Errorf("deployment %d: %w", n, err)
		}

		var rec Record
		sim.Run(func(r Record) { rec = r })

		records = append(records, rec)
		elapsed += rec.Duration + interceptGap
		if rec.CopsKilled > 0 {
			lethal = true
		}
		if onDeployment != nil {
			onDeployment(n, rec)
		}
	}
	return records, nil
}
