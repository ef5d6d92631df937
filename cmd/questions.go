package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/brigade/internal/questionbank"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Inspect and regenerate a unit's question bank",
}

var questionsListCmd = &cobra.Command{
	Use:   "list <unit-id>",
	Short: "Show the active questions of a unit with their answer keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		qs, err := readOnlyBank(st, quietLogger(cfg)).Active(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		if len(qs) == 0 {
			fmt.Println("No active questions; they are generated on first use.")
			return nil
		}
		for _, q := range qs {
			printQuestion(q)
		}
		return nil
	},
}

var questionsRegenerateCmd = &cobra.Command{
	Use:   "regenerate <unit-id>",
	Short: "Generate a fresh question batch, retiring the current one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		st, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		logger := cfg.Logger()
		provider, err := newLLMProvider(ctx, st, logger)
		if err != nil {
			return err
		}
		svc := newServices(cfg, st, provider, nil, nil, logger)
		qs, err := svc.bank.Regenerate(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Generated %d questions for %s.\n", len(qs), args[0])
		return nil
	},
}

func printQuestion(q *questionbank.Question) {
	fmt.Printf("%d. [%s] %s\n", q.Position+1, q.Topic, q.Prompt)
	for _, o := range q.Options {
		mark := " "
		if o.Correct {
			mark = "*"
		}
		fmt.Printf("   %s %s) %s\n", mark, o.ID, o.Text)
	}
	if q.Rubric != "" {
		fmt.Printf("   rubric: %s\n", q.Rubric)
	}
	fmt.Println(strings.Repeat("─", 60))
}

func init() {
	questionsCmd.AddCommand(questionsListCmd)
	questionsCmd.AddCommand(questionsRegenerateCmd)
}
