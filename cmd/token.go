package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"calendar-service/internal/config"
	"calendar-service/internal/token"
)

var (
	tokenUserID int64
	tokenEmail  string
	tokenRole   string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API bearer token for a user",
	Run: func(cmd *cobra.Command, args []string) {
		ttl := time.Duration(config.Cfg.AuthTokenTTL) * time.Hour
		claim := token.NewPrincipalClaim(tokenUserID, tokenEmail, tokenRole, ttl)

		signed, err := token.Generate(config.Cfg.Secret, claim)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(signed)
	},
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user", 0, "user id")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "user email")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "user", "role claim")
	tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
