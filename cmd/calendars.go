package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"calendar-service/internal/storage"
)

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "Manage calendars",
	Long:  `List, create and delete calendars directly against the store, bypassing the HTTP API.`,
}

var calendarsUserID int64

var listCalendarsCmd = &cobra.Command{
	Use:   "list",
	Short: "List calendars visible to a user",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		calendars, err := provider.ListCalendarsForUser(ctx, calendarsUserID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list calendars: %v\n", err)
			os.Exit(1)
		}
		if len(calendars) == 0 {
			fmt.Println("No calendars found")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCONTEXT\tPRIMARY\tSYSTEM")
		for _, cal := range calendars {
			fmt.Fprintf(w, "%d\t%s\t%s:%d\t%t\t%t\n",
				cal.ID, cal.Name, cal.ContextType, cal.ContextID, cal.IsPrimary, cal.IsSystem)
		}
		w.Flush()
	},
}

var (
	createName    string
	createContext string
	createPrimary bool
)

var createCalendarCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a calendar",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		contextType := storage.ContextType(createContext)
		if !contextType.Valid() {
			fmt.Fprintf(os.Stderr, "Invalid context type %q\n", createContext)
			os.Exit(1)
		}

		cal, err := provider.CreateCalendar(ctx, storage.Calendar{
			Name:        createName,
			ContextType: contextType,
			ContextID:   calendarsUserID,
			IsPrimary:   createPrimary,
			IsDeletable: true,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create calendar: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created calendar %d (%s)\n", cal.ID, cal.Name)
	},
}

var deleteCalendarCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a calendar and its events",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id <= 0 {
			fmt.Fprintf(os.Stderr, "Invalid calendar id %q\n", args[0])
			os.Exit(1)
		}

		if err := provider.DeleteCalendar(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete calendar: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Deleted calendar %d\n", id)
	},
}

func init() {
	calendarsCmd.PersistentFlags().Int64Var(&calendarsUserID, "user", 0, "acting user id")
	calendarsCmd.MarkPersistentFlagRequired("user")

	createCalendarCmd.Flags().StringVar(&createName, "name", "", "calendar name")
	createCalendarCmd.Flags().StringVar(&createContext, "context", string(storage.ContextPersonal), "context type (PERSONAL, BUSINESS, HOUSEHOLD)")
	createCalendarCmd.Flags().BoolVar(&createPrimary, "primary", false, "mark as the context's primary calendar")
	createCalendarCmd.MarkFlagRequired("name")

	calendarsCmd.AddCommand(listCalendarsCmd)
	calendarsCmd.AddCommand(createCalendarCmd)
	calendarsCmd.AddCommand(deleteCalendarCmd)
	rootCmd.AddCommand(calendarsCmd)
}
