package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/cordon/internal/dispatch"
	"github.com/vovakirdan/cordon/internal/registry"
	"github.com/vovakirdan/cordon/internal/roadblock"
	"github.com/vovakirdan/cordon/internal/storage"
)

var (
	flagVariant        string
	flagLevel          int
	flagCount          int
	flagLanes          int
	flagOppositeLanes  int
	flagLaneWidth      float64
	flagSpeed          float64
	flagTimeScale      float64
	flagBypassChance   float64
	flagCasualtyChance float64
	flagLights         bool
	flagSlowTraffic    bool
	flagSpikeStrips    bool
	flagSeatCrew       bool
	flagJoinMode       string
	flagNoEscalation   bool
	flagNoSave         bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run roadblock deployments against a simulated pursuit",
	Long: `Deploy one or more roadblocks against a simulated fleeing vehicle
and record the outcomes.

Each deployment builds a straight road, places the roadblock ahead of
the target and drives the target at it. The target either rams a slot
vehicle or swerves around the block; spike strips deploy when it comes
into range. With --count above 1 the level escalates between attempts
as the chase drags on.

Join-pursuit modes:
  none    - Crew stays at the block after the outcome
  always  - Crew joins the pursuit on release
  bypass  - Crew joins only when the target slips past
  hit     - Crew joins only when the target rams the block

Examples:
  cordon deploy
  cordon deploy --variant pursuit --level 3 --spike-strips --join hit
  cordon deploy --count 5 --seed 42 --time-scale 20
  cordon deploy --variant standard --lanes 4 --slow-traffic`,
	Run: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&flagVariant, "variant", "pursuit", "Roadblock variant (see 'cordon levels')")
	deployCmd.Flags().IntVar(&flagLevel, "level", 1, "Starting roadblock level")
	deployCmd.Flags().IntVar(&flagCount, "count", 1, "Consecutive deployments against the same pursuit")
	deployCmd.Flags().IntVar(&flagLanes, "lanes", 2, "Lanes in the pursuit direction")
	deployCmd.Flags().IntVar(&flagOppositeLanes, "opposite-lanes", 1, "Lanes in the opposite direction")
	deployCmd.Flags().Float64Var(&flagLaneWidth, "lane-width", 5.5, "Lane width in world units")
	deployCmd.Flags().Float64Var(&flagSpeed, "speed", 30, "Target speed in units per second")
	deployCmd.Flags().Float64Var(&flagTimeScale, "time-scale", 10, "Wall-clock compression of simulated time")
	deployCmd.Flags().Float64Var(&flagBypassChance, "bypass-chance", 0.5, "Probability the target swerves around the block")
	deployCmd.Flags().Float64Var(&flagCasualtyChance, "casualty-chance", 0.25, "Probability a ram kills a crew member")
	deployCmd.Flags().BoolVar(&flagLights, "lights", false, "Place lights at each slot")
	deployCmd.Flags().BoolVar(&flagSlowTraffic, "slow-traffic", false, "Place a speed-reduction zone around the block")
	deployCmd.Flags().BoolVar(&flagSpikeStrips, "spike-strips", false, "Arm slots with spike strips (pursuit variant)")
	deployCmd.Flags().BoolVar(&flagSeatCrew, "seat-crew", false, "Warp crew into the slot vehicles on spawn")
	deployCmd.Flags().StringVar(&flagJoinMode, "join", "none", "Join-pursuit mode: none, always, bypass, hit")
	deployCmd.Flags().BoolVar(&flagNoEscalation, "no-escalation", false, "Keep the level fixed across deployments")
	deployCmd.Flags().BoolVar(&flagNoSave, "no-save", false, "Do not record the deployments")
}

func runDeploy(cmd *cobra.Command, args []string) {
	if !registry.Exists(flagVariant) {
		fmt.Fprintf(os.Stderr, "Error: unknown variant %q\n", flagVariant)
		fmt.Fprintln(os.Stderr, "Run 'cordon levels' to see available variants.")
		os.Exit(1)
	}

	flags, err := joinFlags(flagJoinMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flags.EnableLights = flagLights
	flags.SlowTraffic = flagSlowTraffic
	flags.SpikeStrips = flagSpikeStrips
	flags.ForceInVehicle = flagSeatCrew

	cfg := loadEngineConfig()
	logger := newLogger()

	params := dispatch.DefaultParams()
	params.Variant = flagVariant
	params.Level = flagLevel
	params.Flags = flags
	params.Lanes = flagLanes
	params.OppositeLanes = flagOppositeLanes
	params.LaneWidth = flagLaneWidth
	params.Speed = flagSpeed
	params.TimeScale = flagTimeScale
	params.BypassChance = flagBypassChance
	params.CasualtyChance = flagCasualtyChance

	var saver dispatch.Saver
	var store *storage.Store
	if !flagNoSave {
		store, err = storage.Open(flagDBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open history database: %v\n", err)
			// Continue without persistence
		} else {
			saver = store
			defer store.Close()
		}
	}

	seed := seedValue()
	series := dispatch.NewSeries(dispatch.Deps{
		Config: cfg,
		Logger: logger,
		Rand:   rand.New(rand.NewSource(seed)),
		Saver:  saver,
	}, params, flagCount)
	if flagNoEscalation {
		series.SetEscalation(false)
	}

	fmt.Printf("Deploying %d roadblock(s), variant %s, seed %d\n\n", flagCount, flagVariant, seed)

	records, err := series.Run(func(n int, rec dispatch.Record) {
		fmt.Printf("  #%-3d level %d  %d lanes  %-9s +%d cops  %d killed  %5.1fs%s\n",
			n, rec.Level, rec.LanesBlocked, rec.Outcome,
			rec.CopsReleased, rec.CopsKilled, rec.Duration.Seconds(),
			stripSummary(rec.Strips))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running deployments: %v\n", err)
		os.Exit(1)
	}

	var hits, bypasses, released, killed int
	for _, rec := range records {
		switch rec.Outcome {
		case dispatch.OutcomeHit:
			hits++
		case dispatch.OutcomeBypassed:
			bypasses++
		}
		released += rec.CopsReleased
		killed += rec.CopsKilled
	}

	fmt.Println()
	fmt.Printf("%d deployments: %d hit, %d bypassed, %d cops released, %d killed\n",
		len(records), hits, bypasses, released, killed)
	if !flagNoSave && store != nil {
		fmt.Println("Run 'cordon history' to review them.")
	}
}

// joinFlags maps the --join mode name onto the roadblock flags.
func joinFlags(mode string) (roadblock.Flags, error) {
	var f roadblock.Flags
	switch mode {
	case "none", "":
	case "always":
		f.JoinPursuit = true
	case "bypass":
		f.JoinPursuitOnBypass = true
	case "hit":
		f.JoinPursuitOnHit = true
	default:
		return f, fmt.Errorf("unknown join mode %q (want none, always, bypass or hit)", mode)
	}
	return f, nil
}

// stripSummary renders the per-location strip results of one record.
func stripSummary(strips []dispatch.StripRecord) string {
	if len(strips) == 0 {
		return ""
	}
	out := "  strips:"
	for _, s := range strips {
		out += fmt.Sprintf(" %s=%s", s.Location, s.State)
	}
	return out
}
