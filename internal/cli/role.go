package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reedcms/reed/internal/corerr"
	"github.com/reedcms/reed/internal/roles"
)

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage roles, inheritance and permissions",
}

func init() {
	roleCmd.AddCommand(newRoleCreateCmd())
	roleCmd.AddCommand(newRoleGetCmd())
	roleCmd.AddCommand(newRoleListCmd())
	roleCmd.AddCommand(newRoleUpdateCmd())
	roleCmd.AddCommand(newRoleDeleteCmd())
	AddCommand(roleCmd)
}

func newRoleCreateCmd() *cobra.Command {
	var perms, conds []string
	var inherits, description string
	cmd := &cobra.Command{
		Use:   "create <role_name>",
		Short: "Create a new role",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			p, err := parsePermissions(perms)
			if err != nil {
				exitErr(err)
			}
			c, err := parseConditions(conds)
			if err != nil {
				exitErr(err)
			}
			r, err := deps.Roles.CreateRole(roles.CreateInput{
				RoleName:    args[0],
				Permissions: p,
				Conditions:  c,
				Inherits:    inherits,
				Description: description,
			})
			if err != nil {
				exitErr(err)
			}
			printRole(r)
		},
	}
	cmd.Flags().StringArrayVar(&perms, "perm", nil, `permission as "resource[rwx]", repeatable`)
	cmd.Flags().StringArrayVar(&conds, "cond", nil, `conditional permission as "resource[rule_name]", repeatable`)
	cmd.Flags().StringVar(&inherits, "inherits", "", "parent role name")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	return cmd
}

func newRoleGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <role_name>",
		Short: "Show a role and its effective (inherited) permissions",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r, err := deps.Roles.GetRole(args[0])
			if err != nil {
				exitErr(err)
			}
			printRole(r)
			for _, p := range r.EffectivePermissions {
				fmt.Printf("  effective: %s[%s]\n", p.Resource, p.Flags)
			}
		},
	}
}

func newRoleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every role",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			list, err := deps.Roles.ListRoles()
			if err != nil {
				exitErr(err)
			}
			for _, r := range list {
				printRole(r)
			}
		},
	}
}

func newRoleUpdateCmd() *cobra.Command {
	var perms, conds []string
	var inherits, description string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <role_name>",
		Short: "Update a role",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			in := roles.UpdateInput{}
			if cmd.Flags().Changed("perm") {
				p, err := parsePermissions(perms)
				if err != nil {
					exitErr(err)
				}
				in.Permissions = &p
			}
			if cmd.Flags().Changed("cond") {
				c, err := parseConditions(conds)
				if err != nil {
					exitErr(err)
				}
				in.Conditions = &c
			}
			if cmd.Flags().Changed("inherits") {
				in.Inherits = &inherits
			}
			if cmd.Flags().Changed("desc") {
				in.Description = &description
			}
			if cmd.Flags().Changed("active") {
				in.IsActive = &active
			}
			r, err := deps.Roles.UpdateRole(args[0], in)
			if err != nil {
				exitErr(err)
			}
			printRole(r)
		},
	}
	cmd.Flags().StringArrayVar(&perms, "perm", nil, `permission as "resource[rwx]", repeatable; replaces the full set`)
	cmd.Flags().StringArrayVar(&conds, "cond", nil, `conditional permission as "resource[rule_name]", repeatable; replaces the full set`)
	cmd.Flags().StringVar(&inherits, "inherits", "", "parent role name")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	cmd.Flags().BoolVar(&active, "active", true, "mark the role active or inactive")
	return cmd
}

func newRoleDeleteCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "delete <role_name>",
		Short: "Delete a role",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := deps.Roles.DeleteRole(args[0], confirm); err != nil {
				exitErr(err)
			}
			fmt.Println("deleted", args[0])
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required to actually delete")
	return cmd
}

func printRole(r roles.Role) {
	var perms []string
	for _, p := range r.Permissions {
		perms = append(perms, fmt.Sprintf("%s[%s]", p.Resource, p.Flags))
	}
	fmt.Printf("%s\tinherits=%s\tpermissions=%s\tactive=%t\n", r.RoleName, r.Inherits, strings.Join(perms, ","), r.IsActive)
}

// parsePermissions parses a set of "resource[rwx]" strings into
// Permission values and validates each against the role grammar.
func parsePermissions(raw []string) ([]roles.Permission, error) {
	out := make([]roles.Permission, 0, len(raw))
	for _, s := range raw {
		resource, flags, err := splitBracket(s)
		if err != nil {
			return nil, err
		}
		p := roles.Permission{Resource: resource, Flags: roles.Flags(flags)}
		if err := roles.ValidatePermission(p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// parseConditions parses a set of "resource[rule_name]" strings into
// Condition values.
func parseConditions(raw []string) ([]roles.Condition, error) {
	out := make([]roles.Condition, 0, len(raw))
	for _, s := range raw {
		resource, rule, err := splitBracket(s)
		if err != nil {
			return nil, err
		}
		out = append(out, roles.Condition{Resource: resource, RuleName: rule})
	}
	return out, nil
}

func splitBracket(s string) (string, string, error) {
	open := strings.IndexByte(s, '[')
	if open == -1 || !strings.HasSuffix(s, "]") {
		return "", "", &corerr.ValidationError{Field: "entry", Value: s, Constraint: `must look like "resource[value]"`}
	}
	return s[:open], s[open+1 : len(s)-1], nil
}
