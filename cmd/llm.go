package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/brigade/internal/llm"
	"github.com/abhisek/brigade/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded LLM requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		before, _ := cmd.Flags().GetInt64("before")

		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		reqs, err := s.LLMRequests().List(commandContext(cmd), store.QueryOpts{Limit: limit, Purpose: purpose, Before: before})
		if err != nil {
			return fmt.Errorf("list LLM requests: %w", err)
		}
		if len(reqs) == 0 {
			fmt.Println("No LLM requests recorded.")
			return nil
		}

		fmt.Printf("%-6s  %-16s  %-12s  %-28s  %6s  %6s  %7s  %s\n",
			"ID", "Time", "Purpose", "Model", "In", "Out", "Ms", "OK")
		rule(98)
		for _, r := range reqs {
			ok := "✓"
			if !r.Success {
				ok = "✗"
			}
			fmt.Printf("%-6d  %-16s  %-12s  %-28s  %6d  %6d  %7d  %s\n",
				r.ID, r.Timestamp.Local().Format("2006-01-02 15:04"), truncate(r.Purpose, 12),
				truncate(r.Model, 28), r.InputTokens, r.OutputTokens, r.LatencyMs, ok)
		}
		if len(reqs) == limit {
			fmt.Printf("\nOlder: brigade llm list --before %d\n", reqs[len(reqs)-1].ID)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the prompt and response of one LLM request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		r, err := s.LLMRequests().Get(commandContext(cmd), id)
		if err != nil {
			return err
		}

		cost := "?"
		if c := llm.LookupCost(r.Model); c != nil {
			cost = formatCost(c.Cost(r.InputTokens, r.OutputTokens))
		}
		fields := [][2]string{
			{"ID", strconv.FormatInt(r.ID, 10)},
			{"Time", r.Timestamp.Local().Format("2006-01-02 15:04:05")},
			{"Purpose", r.Purpose},
			{"Provider", r.Provider},
			{"Model", r.Model},
			{"Tokens", fmt.Sprintf("%d in / %d out (%s)", r.InputTokens, r.OutputTokens, cost)},
			{"Latency", fmt.Sprintf("%dms", r.LatencyMs)},
			{"Success", strconv.FormatBool(r.Success)},
		}
		if r.ErrorMessage != "" {
			fields = append(fields, [2]string{"Error", r.ErrorMessage})
		}
		for _, f := range fields {
			fmt.Printf("%-9s %s\n", f[0]+":", f[1])
		}

		section("REQUEST", r.RequestBody)
		section("RESPONSE", r.ResponseBody)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per purpose and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := commandContext(cmd)
		byPurpose, err := s.LLMRequests().UsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("usage by purpose: %w", err)
		}
		if len(byPurpose) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		fmt.Println("Usage by purpose")
		fmt.Printf("%-14s  %6s  %10s  %10s  %8s\n", "Purpose", "Calls", "Input", "Output", "Avg Ms")
		rule(56)
		var calls, in, out int
		for _, u := range byPurpose {
			fmt.Printf("%-14s  %6d  %10d  %10d  %8d\n", u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
			calls, in, out = calls+u.Calls, in+u.InputTokens, out+u.OutputTokens
		}
		rule(56)
		fmt.Printf("%-14s  %6d  %10d  %10d\n", "TOTAL", calls, in, out)

		byModel, err := s.LLMRequests().UsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("usage by model: %w", err)
		}
		fmt.Println()
		fmt.Println("Estimated cost (USD)")
		fmt.Printf("%-32s  %6s  %10s\n", "Model", "Calls", "Cost")
		rule(52)
		var total float64
		var unpriced []string
		for _, u := range byModel {
			c := llm.LookupCost(u.Model)
			if c == nil {
				unpriced = append(unpriced, u.Model)
				fmt.Printf("%-32s  %6d  %10s\n", truncate(u.Model, 32), u.Calls, "?")
				continue
			}
			usd := c.Cost(u.InputTokens, u.OutputTokens)
			total += usd
			fmt.Printf("%-32s  %6d  %10s\n", truncate(u.Model, 32), u.Calls, formatCost(usd))
		}
		rule(52)
		label := "TOTAL"
		if len(unpriced) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Printf("%-32s  %6s  %10s\n", label, "", formatCost(total))
		if len(unpriced) > 0 {
			fmt.Printf("\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
		}
		return nil
	},
}

func rule(n int) { fmt.Println(strings.Repeat("─", n)) }

func section(title, body string) {
	fmt.Println()
	rule(60)
	fmt.Println(title)
	rule(60)
	if body == "" {
		body = "(not captured)"
	}
	fmt.Println(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only this purpose: "+strings.Join([]string{
		llm.PurposeQuestionGen, llm.PurposeGrading, llm.PurposeFeedback, llm.PurposeTutor,
	}, ", "))
	llmListCmd.Flags().Int64("before", 0, "Only requests with an ID below this one")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
