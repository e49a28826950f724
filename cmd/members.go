package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"calendar-service/internal/storage"
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage context memberships",
	Long:  `Grant users access to shared business or household contexts.`,
}

var (
	memberContext   string
	memberContextID int64
	memberRole      string
)

var addMemberCmd = &cobra.Command{
	Use:   "add <user-id>",
	Short: "Add a user to a context",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var userID int64
		if _, err := fmt.Sscanf(args[0], "%d", &userID); err != nil || userID <= 0 {
			fmt.Fprintf(os.Stderr, "Invalid user id %q\n", args[0])
			os.Exit(1)
		}

		contextType := storage.ContextType(memberContext)
		if !contextType.Valid() || contextType == storage.ContextPersonal {
			fmt.Fprintf(os.Stderr, "Context must be BUSINESS or HOUSEHOLD, got %q\n", memberContext)
			os.Exit(1)
		}

		err := provider.AddContextMember(ctx, storage.ContextMember{
			ContextType: contextType,
			ContextID:   memberContextID,
			UserID:      userID,
			Role:        memberRole,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to add member: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added user %d to %s:%d as %s\n", userID, contextType, memberContextID, memberRole)
	},
}

var listMembershipsCmd = &cobra.Command{
	Use:   "list <user-id>",
	Short: "List a user's context memberships",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var userID int64
		if _, err := fmt.Sscanf(args[0], "%d", &userID); err != nil || userID <= 0 {
			fmt.Fprintf(os.Stderr, "Invalid user id %q\n", args[0])
			os.Exit(1)
		}

		memberships, err := provider.ListMemberships(ctx, userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list memberships: %v\n", err)
			os.Exit(1)
		}
		if len(memberships) == 0 {
			fmt.Println("No memberships found")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CONTEXT\tROLE")
		for _, m := range memberships {
			fmt.Fprintf(w, "%s:%d\t%s\n", m.ContextType, m.ContextID, m.Role)
		}
		w.Flush()
	},
}

func init() {
	addMemberCmd.Flags().StringVar(&memberContext, "context", "", "context type (BUSINESS or HOUSEHOLD)")
	addMemberCmd.Flags().Int64Var(&memberContextID, "context-id", 0, "context id")
	addMemberCmd.Flags().StringVar(&memberRole, "role", "member", "membership role")
	addMemberCmd.MarkFlagRequired("context")
	addMemberCmd.MarkFlagRequired("context-id")

	membersCmd.AddCommand(addMemberCmd)
	membersCmd.AddCommand(listMembershipsCmd)
	rootCmd.AddCommand(membersCmd)
}
