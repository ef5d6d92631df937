package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/brigade/internal/app"
	"github.com/abhisek/brigade/internal/assessment"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/screen"
	assessscreen "github.com/abhisek/brigade/internal/screens/assessment"
	"github.com/abhisek/brigade/internal/screens/home"
	tutorscreen "github.com/abhisek/brigade/internal/screens/tutor"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Take a unit's assessment in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUnit(cmd, assessScreen)
	},
}

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practice a unit with the tutor in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUnit(cmd, practiceScreen)
	},
}

func init() {
	for _, c := range []*cobra.Command{assessCmd, practiceCmd} {
		c.Flags().String("unit", "", "Unit id")
		_ = c.MarkFlagRequired("unit")
	}
}

// runApp opens the home menu listing every unit.
func runApp(cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	st, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := quietLogger(cfg)
	provider, err := newLLMProvider(ctx, st, logger)
	if err != nil {
		return err
	}
	svc := newServices(cfg, st, provider, nil, nil, logger)

	units, err := svc.bank.Units(ctx)
	if err != nil {
		return fmt.Errorf("list units: %w", err)
	}
	if len(units) == 0 {
		return fmt.Errorf("no units yet; import one with `brigade units import <file>`")
	}

	trainee := traineeID(cmd)
	return app.Run(trainee, home.New(trainee, units, home.Launchers{
		Assess: func(u *questionbank.Unit) screen.Screen {
			return assessScreen(svc, trainee, u)
		},
		Practice: func(u *questionbank.Unit) screen.Screen {
			return practiceScreen(svc, trainee, u)
		},
		Outcomes: func() (map[string]home.Outcome, error) {
			return latestOutcomes(ctx, svc.assessment, trainee)
		},
	}))
}

// latestOutcomes reports the newest attempt per unit for the home menu.
func latestOutcomes(ctx context.Context, eng *assessment.Engine, trainee string) (map[string]home.Outcome, error) {
	sessions, err := eng.ListSessions(ctx, trainee, 200)
	if err != nil {
		return nil, err
	}
	out := make(map[string]home.Outcome)
	for _, s := range sessions {
		if _, seen := out[s.UnitID]; seen {
			continue
		}
		o := home.Outcome{Attempt: s.Attempt, Open: !s.Phase.Terminal()}
		if !o.Open {
			res, err := eng.Results(ctx, s.ID)
			if err != nil {
				return nil, err
			}
			o.Score, o.Level, o.Passed = res.Score, string(res.CompetencyLevel), res.Passed
		}
		out[s.UnitID] = o
	}
	return out, nil
}

func assessScreen(svc *services, trainee string, u *questionbank.Unit) screen.Screen {
	return assessscreen.New(svc.assessment, trainee, u)
}

// practiceScreen can hand over to the assessment once the coach suggests
// the trainee is ready.
func practiceScreen(svc *services, trainee string, u *questionbank.Unit) screen.Screen {
	return tutorscreen.New(svc.tutor, trainee, u).OnReady(func(u *questionbank.Unit) screen.Screen {
		return assessScreen(svc, trainee, u)
	})
}

// runUnit opens a single unit's screen directly.
func runUnit(cmd *cobra.Command, open func(*services, string, *questionbank.Unit) screen.Screen) error {
	ctx := commandContext(cmd)
	unitID, _ := cmd.Flags().GetString("unit")

	st, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := quietLogger(cfg)
	provider, err := newLLMProvider(ctx, st, logger)
	if err != nil {
		return err
	}
	svc := newServices(cfg, st, provider, nil, nil, logger)

	u, err := svc.bank.Unit(ctx, unitID)
	if err != nil {
		return err
	}
	trainee := traineeID(cmd)
	return app.Run(trainee, open(svc, trainee, u))
}
