package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect the moderation queue",
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List reports, pending ones by default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status == "all" {
				status = ""
			}
			reports, err := svc.Queue(context.Background(), status)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Println("No reports")
				return nil
			}
			fmt.Printf("%-6s %-8s %-8s %-8s %-8s %s\n", "ID", "Status", "Target", "ID", "Invalid", "Reason")
			for _, r := range reports {
				fmt.Printf("%-6d %-8s %-8s %-8d %-8t %s\n", r.ID, r.Status, r.TargetType, r.TargetID, r.InvalidTarget, r.Reason)
			}
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "pending", "pending, closed or all")

	cmd.AddCommand(list)
	return cmd
}
