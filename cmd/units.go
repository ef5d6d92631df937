package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/brigade/internal/questionbank"
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Manage training units",
}

var unitsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import units from a JSON file (one unit or an array)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		units, err := decodeUnits(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		st, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := commandContext(cmd)
		bank := readOnlyBank(st, quietLogger(cfg))
		for _, u := range units {
			if u.PassingThreshold == 0 {
				u.PassingThreshold = cfg.PassingThreshold
			}
			if err := bank.PutUnit(ctx, u); err != nil {
				return err
			}
			fmt.Printf("imported %s (%s, pass mark %d)\n", u.ID, u.AssessmentType, u.PassingThreshold)
		}
		return nil
	},
}

var unitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List units",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		units, err := readOnlyBank(st, quietLogger(cfg)).Units(commandContext(cmd))
		if err != nil {
			return err
		}
		if len(units) == 0 {
			fmt.Println("No units imported.")
			return nil
		}

		fmt.Printf("%-20s  %-32s  %-12s  %4s  %3s\n", "ID", "Title", "Type", "Pass", "Qs")
		fmt.Println(strings.Repeat("─", 78))
		for _, u := range units {
			fmt.Printf("%-20s  %-32s  %-12s  %4d  %3d\n",
				truncate(u.ID, 20), truncate(u.Title, 32), u.AssessmentType, u.PassingThreshold, u.QuestionCount)
		}
		return nil
	},
}

// decodeUnits accepts a single unit object or an array of them.
func decodeUnits(data []byte) ([]*questionbank.Unit, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var units []*questionbank.Unit
		if err := json.Unmarshal(data, &units); err != nil {
			return nil, err
		}
		return units, nil
	}
	var u questionbank.Unit
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return []*questionbank.Unit{&u}, nil
}

func init() {
	unitsCmd.AddCommand(unitsImportCmd)
	unitsCmd.AddCommand(unitsListCmd)
}
