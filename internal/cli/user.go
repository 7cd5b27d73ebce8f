package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reedcms/reed/internal/users"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user records",
}

func init() {
	userCmd.AddCommand(newUserCreateCmd())
	userCmd.AddCommand(newUserGetCmd())
	userCmd.AddCommand(newUserListCmd())
	userCmd.AddCommand(newUserUpdateCmd())
	userCmd.AddCommand(newUserDeleteCmd())
	userCmd.AddCommand(newUserPasswdCmd())
	AddCommand(userCmd)
}

func newUserCreateCmd() *cobra.Command {
	var roleList, firstName, lastName, address, email, social, description string
	cmd := &cobra.Command{
		Use:   "create <username> <password>",
		Short: "Create a new user",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			u, err := deps.Users.CreateUser(users.CreateInput{
				Username:    args[0],
				Password:    args[1],
				Roles:       splitCSV(roleList),
				FirstName:   firstName,
				LastName:    lastName,
				Address:     address,
				Email:       email,
				Social:      social,
				Description: description,
			})
			if err != nil {
				exitErr(err)
			}
			printUser(u)
		},
	}
	cmd.Flags().StringVar(&roleList, "roles", "", "comma-separated role names")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&address, "address", "", "postal address")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&social, "social", "", "social handle")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newUserGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <username>",
		Short: "Show a single user",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			u, err := deps.Users.GetUser(args[0])
			if err != nil {
				exitErr(err)
			}
			printUser(u)
		},
	}
}

func newUserListCmd() *cobra.Command {
	var filter string
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			list, err := deps.Users.ListUsers(users.ListFilter{Filter: filter, ActiveOnly: activeOnly})
			if err != nil {
				exitErr(err)
			}
			for _, u := range list {
				printUser(u)
			}
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "substring or glob against username")
	cmd.Flags().BoolVar(&activeOnly, "active-only", false, "only list active users")
	return cmd
}

func newUserUpdateCmd() *cobra.Command {
	var roleList, firstName, lastName, address, email, social, description string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <username>",
		Short: "Update a user's profile",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			in := users.UpdateInput{}
			if cmd.Flags().Changed("roles") {
				roles := splitCSV(roleList)
				in.Roles = &roles
			}
			if cmd.Flags().Changed("first-name") {
				in.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				in.LastName = &lastName
			}
			if cmd.Flags().Changed("address") {
				in.Address = &address
			}
			if cmd.Flags().Changed("email") {
				in.Email = &email
			}
			if cmd.Flags().Changed("social") {
				in.Social = &social
			}
			if cmd.Flags().Changed("desc") {
				in.Description = &description
			}
			if cmd.Flags().Changed("active") {
				in.IsActive = &active
			}
			u, err := deps.Users.UpdateUser(args[0], in)
			if err != nil {
				exitErr(err)
			}
			printUser(u)
		},
	}
	cmd.Flags().StringVar(&roleList, "roles", "", "comma-separated role names")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&address, "address", "", "postal address")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&social, "social", "", "social handle")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	cmd.Flags().BoolVar(&active, "active", true, "mark the user active or inactive")
	return cmd
}

func newUserDeleteCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := deps.Users.DeleteUser(args[0], confirm); err != nil {
				exitErr(err)
			}
			fmt.Println("deleted", args[0])
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required to actually delete")
	return cmd
}

func newUserPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <username> <old-password> <new-password>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			if err := deps.Users.ChangePassword(args[0], args[1], args[2]); err != nil {
				exitErr(err)
			}
			fmt.Println("password changed for", args[0])
		},
	}
}

func printUser(u users.User) {
	fmt.Printf("%s\troles=%s\temail=%s\tactive=%t\n", u.Username, strings.Join(u.Roles, ","), u.Email, u.IsActive)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
