package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reedcms/reed/internal/store"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Read a value from one of the five caches",
}

func newGetSubcommand(use, short string, fn func(store.Request, bool) (store.Response[string], error)) *cobra.Command {
	var lang, env string
	cmd := &cobra.Command{
		Use:   use + " <key>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := fn(store.Request{Key: args[0], Language: lang, Environment: env}, false)
			if err != nil {
				exitErr(err)
			}
			fmt.Println(resp.Data)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "language override (2 lowercase letters)")
	cmd.Flags().StringVar(&env, "env", "", "environment override (3-12 lowercase letters)")
	return cmd
}

func init() {
	getCmd.AddCommand(newGetSubcommand("text", "Read a text value", func(r store.Request, m bool) (store.Response[string], error) { return deps.Store.GetText(r, m) }))
	getCmd.AddCommand(newGetSubcommand("route", "Read a route value", func(r store.Request, m bool) (store.Response[string], error) { return deps.Store.GetRoute(r, m) }))
	getCmd.AddCommand(newGetSubcommand("meta", "Read a meta value", func(r store.Request, m bool) (store.Response[string], error) { return deps.Store.GetMeta(r, m) }))
	getCmd.AddCommand(newGetSubcommand("config", "Read a project or server config value", func(r store.Request, m bool) (store.Response[string], error) { return deps.Store.GetConfig(r, m) }))
	AddCommand(getCmd)
}
