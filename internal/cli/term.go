package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reedcms/reed/internal/taxonomy"
)

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Manage taxonomy terms",
}

func init() {
	termCmd.AddCommand(newTermCreateCmd())
	termCmd.AddCommand(newTermGetCmd())
	termCmd.AddCommand(newTermListCmd())
	termCmd.AddCommand(newTermUpdateCmd())
	termCmd.AddCommand(newTermDeleteCmd())
	termCmd.AddCommand(newTermTreeCmd())
	AddCommand(termCmd)
}

func newTermCreateCmd() *cobra.Command {
	var vocabulary, parent, color, icon, description string
	var weight int
	var enabled bool
	cmd := &cobra.Command{
		Use:   "create <term_id>",
		Short: "Create a new taxonomy term",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			t, err := deps.Taxonomy.CreateTerm(taxonomy.CreateTermInput{
				TermID:      args[0],
				Vocabulary:  vocabulary,
				Weight:      weight,
				Parent:      parent,
				Enabled:     enabled,
				Color:       color,
				Icon:        icon,
				Description: description,
			})
			if err != nil {
				exitErr(err)
			}
			printTerm(t)
		},
	}
	cmd.Flags().StringVar(&vocabulary, "vocabulary", "", "vocabulary this term belongs to")
	cmd.Flags().IntVar(&weight, "weight", 0, "sort weight within its parent")
	cmd.Flags().StringVar(&parent, "parent", "", "parent term_id")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "whether the term is enabled")
	cmd.Flags().StringVar(&color, "color", "", "display color")
	cmd.Flags().StringVar(&icon, "icon", "", "display icon")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	cmd.MarkFlagRequired("vocabulary")
	return cmd
}

func newTermGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <term_id>",
		Short: "Show a single term",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			t, err := deps.Taxonomy.GetTerm(args[0])
			if err != nil {
				exitErr(err)
			}
			printTerm(t)
		},
	}
}

func newTermListCmd() *cobra.Command {
	var vocabulary string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List terms, optionally filtered by vocabulary",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			list, err := deps.Taxonomy.ListTerms(vocabulary)
			if err != nil {
				exitErr(err)
			}
			for _, t := range list {
				printTerm(t)
			}
		},
	}
	cmd.Flags().StringVar(&vocabulary, "vocabulary", "", "restrict the listing to this vocabulary")
	return cmd
}

func newTermUpdateCmd() *cobra.Command {
	var vocabulary, parent, color, icon, description string
	var weight int
	var enabled bool
	cmd := &cobra.Command{
		Use:   "update <term_id>",
		Short: "Update a term",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			in := taxonomy.UpdateTermInput{}
			if cmd.Flags().Changed("vocabulary") {
				in.Vocabulary = &vocabulary
			}
			if cmd.Flags().Changed("weight") {
				in.Weight = &weight
			}
			if cmd.Flags().Changed("parent") {
				in.Parent = &parent
			}
			if cmd.Flags().Changed("enabled") {
				in.Enabled = &enabled
			}
			if cmd.Flags().Changed("color") {
				in.Color = &color
			}
			if cmd.Flags().Changed("icon") {
				in.Icon = &icon
			}
			if cmd.Flags().Changed("desc") {
				in.Description = &description
			}
			t, err := deps.Taxonomy.UpdateTerm(args[0], in)
			if err != nil {
				exitErr(err)
			}
			printTerm(t)
		},
	}
	cmd.Flags().StringVar(&vocabulary, "vocabulary", "", "vocabulary this term belongs to")
	cmd.Flags().IntVar(&weight, "weight", 0, "sort weight within its parent")
	cmd.Flags().StringVar(&parent, "parent", "", "parent term_id")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "whether the term is enabled")
	cmd.Flags().StringVar(&color, "color", "", "display color")
	cmd.Flags().StringVar(&icon, "icon", "", "display icon")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	return cmd
}

func newTermDeleteCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "delete <term_id>",
		Short: "Delete a term (fails if it has children or assignments)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := deps.Taxonomy.DeleteTerm(args[0], confirm); err != nil {
				exitErr(err)
			}
			fmt.Println("deleted", args[0])
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required to actually delete")
	return cmd
}

func newTermTreeCmd() *cobra.Command {
	var vocabulary string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print a vocabulary's term hierarchy, sorted by weight",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			nodes, err := deps.Taxonomy.BuildHierarchyTree(vocabulary)
			if err != nil {
				exitErr(err)
			}
			for _, n := range nodes {
				printHierarchyNode(n, 0)
			}
		},
	}
	cmd.Flags().StringVar(&vocabulary, "vocabulary", "", "vocabulary to render")
	cmd.MarkFlagRequired("vocabulary")
	return cmd
}

func printHierarchyNode(n taxonomy.HierarchyNode, depth int) {
	fmt.Printf("%s%s (weight=%d)\n", strings.Repeat("  ", depth), n.Term.TermID, n.Term.Weight)
	for _, c := range n.Children {
		printHierarchyNode(c, depth+1)
	}
}

func printTerm(t taxonomy.Term) {
	fmt.Printf("%s\tvocabulary=%s\tparent=%s\tweight=%d\tenabled=%t\n", t.TermID, t.Vocabulary, t.Parent, t.Weight, t.Enabled)
}
