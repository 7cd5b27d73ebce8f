package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reedcms/reed/internal/taxonomy"
)

func init() {
	AddCommand(newAssignCmd())
	AddCommand(newUnassignCmd())
}

func newAssignCmd() *cobra.Command {
	var weight int
	var enabled bool
	var assignedBy, context, description string
	cmd := &cobra.Command{
		Use:   "assign <entity_id> <term_id>",
		Short: "Assign a taxonomy term to an entity",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := deps.Taxonomy.AssignTerm(taxonomy.AssignInput{
				EntityID:    args[0],
				TermID:      args[1],
				Weight:      weight,
				Enabled:     enabled,
				AssignedBy:  assignedBy,
				Context:     context,
				Description: description,
			})
			if err != nil {
				exitErr(err)
			}
			fmt.Printf("assigned %s -> %s (weight=%d)\n", a.EntityID, a.TermID, a.Weight)
		},
	}
	cmd.Flags().IntVar(&weight, "weight", 0, "sort weight of this assignment")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "whether the assignment is enabled")
	cmd.Flags().StringVar(&assignedBy, "by", "", "username recorded as the assigner")
	cmd.Flags().StringVar(&context, "context", "", "free-form assignment context")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	return cmd
}

func newUnassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <entity_id> <term_id>",
		Short: "Remove a taxonomy term assignment",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if err := deps.Taxonomy.UnassignTerm(args[0], args[1]); err != nil {
				exitErr(err)
			}
			fmt.Printf("unassigned %s -> %s\n", args[0], args[1])
		},
	}
}
