package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/brigade/internal/api"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return fmt.Errorf("BRIGADE_JWT_SECRET is required to issue tokens")
		}
		sub, _ := cmd.Flags().GetString("sub")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		tok, err := api.NewAuth(cfg.JWTSecret).Issue(sub, role, ttl)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("sub", "", "Subject: the trainee or administrator id")
	_ = tokenCmd.MarkFlagRequired("sub")
	tokenCmd.Flags().String("role", api.RoleTrainee, "Role: trainee or admin")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
