package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/klkchan/klkchan/internal/forum"
	"github.com/klkchan/klkchan/internal/models"
)

// readPassword prompts twice on the terminal and compares the answers
func readPassword() (string, error) {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts and roles",
	}

	var email string
	var roles []string
	create := &cobra.Command{
		Use:   "create [username]",
		Short: "Create an account, prompting for the password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword()
			if err != nil {
				return err
			}
			ctx := context.Background()
			u, err := svc.Register(ctx, args[0], email, password)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if err := svc.GrantRole(ctx, u.ID, role); err != nil {
					return fmt.Errorf("user created but granting %s failed: %w", role, err)
				}
			}
			fmt.Printf("User %d '%s' created\n", u.ID, u.Username)
			return nil
		},
	}
	create.Flags().StringVarP(&email, "email", "e", "", "email address (required)")
	create.Flags().StringSliceVar(&roles, "role", nil, "extra role to grant: mod or admin (repeatable)")
	_ = create.MarkFlagRequired("email")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := svc.ListUsers(context.Background())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("No users found")
				return nil
			}
			fmt.Printf("%-6s %-20s %-30s %-16s %-6s %s\n", "ID", "Username", "Email", "Roles", "Banned", "Created")
			for _, u := range users {
				fmt.Printf("%-6d %-20s %-30s %-16s %-6t %s\n", u.ID, u.Username, u.Email,
					strings.Join(u.Roles, ","), u.Banned, u.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	grant := &cobra.Command{
		Use:   "grant [username] [role]",
		Short: "Grant mod or admin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return changeRole(args[0], args[1], true)
		},
	}
	revoke := &cobra.Command{
		Use:   "revoke [username] [role]",
		Short: "Revoke mod or admin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return changeRole(args[0], args[1], false)
		},
	}

	passwd := &cobra.Command{
		Use:   "passwd [username]",
		Short: "Set a new password, prompting for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			u, err := svc.FindUser(ctx, args[0])
			if err != nil {
				return err
			}
			password, err := readPassword()
			if err != nil {
				return err
			}
			if err := svc.ResetPassword(ctx, u.ID, password); err != nil {
				return err
			}
			fmt.Printf("Password of '%s' updated\n", u.Username)
			return nil
		},
	}

	var rename, displayName, bio string
	profile := &cobra.Command{
		Use:   "profile [username]",
		Short: "Change username, display name or bio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			u, err := svc.FindUser(ctx, args[0])
			if err != nil {
				return err
			}
			var patch forum.ProfilePatch
			if cmd.Flags().Changed("rename") {
				patch.Username = &rename
			}
			if cmd.Flags().Changed("display-name") {
				patch.DisplayName = &displayName
			}
			if cmd.Flags().Changed("bio") {
				patch.Bio = &bio
			}
			if patch == (forum.ProfilePatch{}) {
				return fmt.Errorf("nothing to change, use --rename, --display-name or --bio")
			}
			u, err = svc.EditProfile(ctx, u.ID, patch)
			if err != nil {
				return err
			}
			fmt.Printf("User %d '%s' updated (display name %q)\n", u.ID, u.Username, u.DisplayName)
			return nil
		},
	}
	profile.Flags().StringVar(&rename, "rename", "", "new username")
	profile.Flags().StringVar(&displayName, "display-name", "", "new display name, empty clears it")
	profile.Flags().StringVar(&bio, "bio", "", "new bio, empty clears it")

	var yes bool
	del := &cobra.Command{
		Use:   "delete [username]",
		Short: "Delete an account with its posts, comments and votes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			u, err := svc.FindUser(ctx, args[0])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete '%s' (%d posts) without --yes", u.Username, len(u.PostIDs))
			}
			if err := svc.PurgeUser(ctx, u.ID); err != nil {
				return err
			}
			fmt.Printf("User %d '%s' deleted\n", u.ID, u.Username)
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")

	cmd.AddCommand(create, list, grant, revoke, passwd, profile, del)
	return cmd
}

func changeRole(login, role string, grant bool) error {
	ctx := context.Background()
	u, err := svc.FindUser(ctx, login)
	if err != nil {
		return err
	}
	if grant {
		err = svc.GrantRole(ctx, u.ID, role)
	} else {
		err = svc.RevokeRole(ctx, u.ID, role)
	}
	if err != nil {
		return err
	}
	u, err = svc.GetUser(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Printf("'%s' now has roles: %s\n", u.Username, strings.Join(u.Roles, ", "))
	if !u.HasRole(models.RoleMod, models.RoleAdmin) {
		fmt.Println("(no moderation rights)")
	}
	return nil
}
