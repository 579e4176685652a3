package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/klkchan/klkchan/internal/forum"
)

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Create, list and delete boards",
	}

	var description string
	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := svc.CreateBoard(context.Background(), forum.BoardInput{Name: args[0], Description: description})
			if err != nil {
				return err
			}
			fmt.Printf("Board %d '%s' created\n", b.ID, b.Name)
			return nil
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "board description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			var cursor int64
			fmt.Printf("%-6s %-30s %-6s %s\n", "ID", "Name", "Posts", "Description")
			for {
				page, err := svc.ListBoards(ctx, cursor, 0)
				if err != nil {
					return err
				}
				for _, b := range page.Items {
					fmt.Printf("%-6d %-30s %-6d %s\n", b.ID, b.Name, b.PostCount, b.Description)
				}
				if !page.HasMore() {
					return nil
				}
				cursor = page.NextCursor
			}
		},
	}

	del := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a board with all its posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid board id %q", args[0])
			}
			if err := svc.DeleteBoard(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("Board %d deleted\n", id)
			return nil
		},
	}

	cmd.AddCommand(create, list, del)
	return cmd
}
