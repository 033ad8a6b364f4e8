// Package cmd implements the triggerkit command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netwatch-oss/triggerkit/internal/conf"
	"github.com/netwatch-oss/triggerkit/internal/logger"
)

// app carries state shared by subcommands once configuration is loaded.
type app struct {
	v        *viper.Viper
	settings *conf.Settings
	log      logger.Logger
	closeLog io.Closer
	out      io.Writer
}

// Execute runs the root command with OS signal handling.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// NewRootCommand builds the command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}
	var configFile string

	root := &cobra.Command{
		Use:           "triggerkit",
		Short:         "Manage alert triggers for monitored hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.v = conf.NewViper(configFile)
			for flag, key := range map[string]string{
				"log-level": "log.level",
				"base-url":  "client.base_url",
				"token":     "client.token",
				"user":      "client.user_name",
				"role":      "client.user_role",
			} {
				if err := a.v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
					return err
				}
			}
			settings, err := conf.Load(a.v)
			if err != nil {
				return err
			}
			a.settings = settings
			a.log, a.closeLog = logger.New(logger.Options{
				Level:      logger.ParseLevel(settings.Log.Level),
				Format:     settings.Log.Format,
				File:       settings.Log.File,
				MaxSizeMB:  settings.Log.MaxSizeMB,
				MaxBackups: settings.Log.MaxBackups,
				MaxAgeDays: settings.Log.MaxAgeDays,
				Compress:   settings.Log.Compress,
			})
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closeLog != nil {
				_ = a.closeLog.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default ./triggerkit.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("base-url", "", "console API base URL")
	pf.String("token", "", "bearer token for the console API")
	pf.String("user", "", "user name recorded on writes")
	pf.String("role", "", "user role recorded on writes")

	root.AddCommand(newServeCommand(a), newTriggersCommand(a), newHostsCommand(a))
	return root
}
