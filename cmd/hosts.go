package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

func newHostsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "hosts",
		Aliases: []string{"host"},
		Short:   "Inspect and register monitored hosts",
	}
	cmd.PersistentFlags().Bool("json", false, "print JSON instead of a table")
	cmd.AddCommand(newHostsItemsCommand(a), newHostsCreateCommand(a))
	return cmd
}

func newHostsItemsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "items HOSTID",
		Short: "List the metric items a host exposes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.session()
			if err != nil {
				return err
			}
			items, err := s.Items(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return a.printJSON(items)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tUNIT\tINTERVAL")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", it.ID, it.Name, it.Unit, it.Interval)
			}
			return tw.Flush()
		},
	}
}

func newHostsCreateCommand(a *app) *cobra.Command {
	var items []string
	cmd := &cobra.Command{
		Use:   "create HOSTNAME",
		Short: "Register a host with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := make([]trigger.Item, 0, len(items))
			for _, raw := range items {
				it, err := parseItemSpec(raw)
				if err != nil {
					return err
				}
				list = append(list, it)
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			id, err := client.CreateHost(cmd.Context(), args[0], list)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, id)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, `item as name or name:unit, e.g. "cpu_load:%" (repeatable)`)
	return cmd
}

func parseItemSpec(s string) (trigger.Item, error) {
	name, unit, _ := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return trigger.Item{}, fmt.Errorf("item %q: missing name", s)
	}
	return trigger.Item{Name: name, Unit: strings.TrimSpace(unit)}, nil
}
