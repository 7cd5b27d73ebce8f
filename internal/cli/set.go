package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reedcms/reed/internal/store"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Write a value into one of the five caches",
}

func newSetSubcommand(use, short string, fn func(store.Request, bool) (store.Response[string], error)) *cobra.Command {
	var lang, env, desc string
	cmd := &cobra.Command{
		Use:   use + " <key> <value>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := fn(store.Request{Key: args[0], Value: args[1], Language: lang, Environment: env, Description: desc}, false)
			if err != nil {
				exitErr(err)
			}
			fmt.Println(resp.Data)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "language override (2 lowercase letters)")
	cmd.Flags().StringVar(&env, "env", "", "environment override (3-12 lowercase letters)")
	cmd.Flags().StringVar(&desc, "desc", "", "human-readable description stored alongside the value")
	return cmd
}

func init() {
	setCmd.AddCommand(newSetSubcommand("text", "Write a text value", func(r store.Request, m bool) (store.Response[string], error) { return deps.Store.SetText(r, m) }))
	setCmd.AddCommand(newSetSubcommand("route", "Write a route value", func(r store.Request, m bool) (store.Response[string], error) { return deps.Store.SetRoute(r, m) }))
	setCmd.AddCommand(newSetSubcommand("meta", "Write a meta value", func(r store.Request, m bool) (store.Response[string], error) { return deps.Store.SetMeta(r, m) }))
	setCmd.AddCommand(newSetSubcommand("config", "Write a project or server config value", func(r store.Request, m bool) (store.Response[string], error) { return deps.Store.SetConfig(r, m) }))
	AddCommand(setCmd)
}
