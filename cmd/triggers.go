package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/netwatch-oss/triggerkit/internal/errors"
	"github.com/netwatch-oss/triggerkit/internal/lifecycle"
	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

func newTriggersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "triggers",
		Aliases: []string{"trigger", "t"},
		Short:   "List and edit triggers through the console API",
	}
	cmd.PersistentFlags().Bool("json", false, "print JSON instead of a table")
	cmd.AddCommand(
		newTriggersListCommand(a),
		newTriggersGroupsCommand(a),
		newTriggersCreateCommand(a),
		newTriggersUpdateCommand(a),
		newTriggersToggleCommand(a),
		newTriggersDeleteCommand(a),
	)
	return cmd
}

func newTriggersListCommand(a *app) *cobra.Command {
	var hostID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := a.session()
			if err != nil {
				return err
			}
			if err := s.Refresh(cmd.Context()); err != nil {
				return err
			}
			var list []trigger.Trigger
			for _, t := range s.Triggers() {
				if hostID == "" || t.HostID == hostID {
					list = append(list, t)
				}
			}
			if asJSON(cmd) {
				return a.printJSON(list)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tHOST\tNAME\tSEVERITY\tENABLED\tEXPRESSION")
			for _, t := range list {
				host := t.Hostname
				if host == "" {
					host = t.HostID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", t.ID, host, t.Name, t.Severity.Label(), t.Enabled, t.Expression)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&hostID, "host", "", "only triggers of this host ID")
	return cmd
}

func newTriggersGroupsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List triggers grouped by host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := a.session()
			if err != nil {
				return err
			}
			if err := s.Refresh(cmd.Context()); err != nil {
				return err
			}
			groups := s.Groups()
			if asJSON(cmd) {
				return a.printJSON(groups)
			}
			for i, g := range groups {
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				fmt.Fprintf(a.out, "%s (%s)\n", g.Hostname, g.HostID)
				for _, t := range g.Triggers {
					state := "enabled"
					if !t.Enabled {
						state = "disabled"
					}
					fmt.Fprintf(a.out, "  %-36s  %-8s  %-14s  %s\n", t.ID, state, t.Severity.Label(), t.Name)
				}
			}
			return nil
		},
	}
}

// editFlags are the record fields settable from the command line.
type editFlags struct {
	name     string
	severity string
	okEvent  string
	clauses  []string
	recovery []string
	disabled bool
}

func (f *editFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "trigger name")
	fl.StringVar(&f.severity, "severity", "", "not classified, information, warning, average, high or disaster")
	fl.StringVar(&f.okEvent, "ok-event", "", "expression, recovery expression or none")
	fl.StringArrayVar(&f.clauses, "clause", nil, `primary clause, e.g. "item=cpu_load,fn=avg,window=15m,op=>,value=90,join=and" (repeatable)`)
	fl.StringArrayVar(&f.recovery, "recovery-clause", nil, "recovery clause (repeatable)")
	fl.BoolVar(&f.disabled, "disabled", false, "store the trigger disabled")
}

// apply copies the flags that were set onto d.
func (f *editFlags) apply(cmd *cobra.Command, d *lifecycle.Draft) error {
	fl := cmd.Flags()
	if fl.Changed("name") {
		d.SetName(f.name)
	}
	if fl.Changed("severity") {
		sev, _, err := trigger.ParseSeverity(f.severity)
		if err != nil {
			return err
		}
		d.SetSeverity(sev)
	}
	if fl.Changed("ok-event") {
		p, err := trigger.ParseOKEventPolicy(f.okEvent)
		if err != nil {
			return err
		}
		d.SetOKEventPolicy(p)
	}
	if fl.Changed("disabled") {
		d.SetEnabled(!f.disabled)
	}
	if len(f.clauses) > 0 {
		if err := replaceChain(d, lifecycle.ChainPrimary, f.clauses); err != nil {
			return err
		}
	}
	if len(f.recovery) > 0 {
		if err := replaceChain(d, lifecycle.ChainRecovery, f.recovery); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) commit(cmd *cobra.Command, s *lifecycle.Session, d *lifecycle.Draft) error {
	if report := d.Validate(); !report.OK() {
		return describeReport(report)
	}
	stored, err := s.Commit(cmd.Context(), a.actor(), d)
	if err != nil {
		return err
	}
	if asJSON(cmd) {
		return a.printJSON(stored)
	}
	fmt.Fprintf(a.out, "%s\t%s\t%s\n", stored.ID, stored.Name, stored.Expression)
	return nil
}

func newTriggersCreateCommand(a *app) *cobra.Command {
	var hostID string
	var flags editFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a trigger on a host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := a.session()
			if err != nil {
				return err
			}
			d := s.NewDraft(hostID)
			if err := flags.apply(cmd, d); err != nil {
				return err
			}
			return a.commit(cmd, s, d)
		},
	}
	cmd.Flags().StringVar(&hostID, "host", "", "owning host ID")
	_ = cmd.MarkFlagRequired("host")
	flags.register(cmd)
	return cmd
}

func newTriggersUpdateCommand(a *app) *cobra.Command {
	var flags editFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a stored trigger; clause flags replace the whole chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.session()
			if err != nil {
				return err
			}
			if err := s.Refresh(cmd.Context()); err != nil {
				return err
			}
			d, err := s.Edit(args[0])
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, d); err != nil {
				return err
			}
			return a.commit(cmd, s, d)
		},
	}
	flags.register(cmd)
	return cmd
}

func newTriggersToggleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Flip a trigger between enabled and disabled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.session()
			if err != nil {
				return err
			}
			if err := s.Refresh(cmd.Context()); err != nil {
				return err
			}
			t, err := s.ToggleEnabled(cmd.Context(), a.actor(), args[0])
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return a.printJSON(t)
			}
			fmt.Fprintf(a.out, "%s\tenabled=%t\n", t.ID, t.Enabled)
			return nil
		},
	}
}

func newTriggersDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.session()
			if err != nil {
				return err
			}
			if err := s.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := s.Delete(cmd.Context(), a.actor(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// describeReport turns a failed report into an error naming the fields.
func describeReport(r trigger.ValidationReport) error {
	err := r.Err()
	if len(r.Clauses) == 0 {
		return err
	}
	var b strings.Builder
	b.WriteString(err.Error())
	ids := make([]string, 0, len(r.Clauses))
	for id := range r.Clauses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ce := r.Clauses[id]
		var fields []string
		if ce.Item {
			fields = append(fields, "item")
		}
		if ce.Function {
			fields = append(fields, "function")
		}
		if ce.Operation {
			fields = append(fields, "operation")
		}
		if ce.Threshold {
			fields = append(fields, "value")
		}
		fmt.Fprintf(&b, "\n  clause %s: %s", id, strings.Join(fields, ", "))
	}
	return errors.NewStd(b.String())
}
