package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/app"
	"github.com/hamed0406/servermonitor/internal/config"
	"github.com/hamed0406/servermonitor/internal/console"
	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/logging"
)

type rootFlags struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	cmd := &cobra.Command{
		Use:   "servermonitor",
		Short: "Periodic reachability monitor with email and Slack alerts",
		Long: `servermonitor checks a list of servers on a fixed interval and sends an
alert when a server fails several checks in a row.

Without a subcommand it opens the interactive console.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, &flags)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "KEY=VALUE file read before the environment")

	cmd.AddCommand(consoleCmd(&flags))
	cmd.AddCommand(runCmd(&flags))
	cmd.AddCommand(listCmd(&flags))
	cmd.AddCommand(addCmd(&flags))
	cmd.AddCommand(removeCmd(&flags))
	cmd.AddCommand(settingsCmd(&flags))
	cmd.AddCommand(pingCmd(&flags))
	cmd.AddCommand(testNotifyCmd(&flags))
	return cmd
}

// session is a built app plus its logger, torn down by close.
type session struct {
	app   *app.App
	log   *zap.Logger
	grace time.Duration
}

func open(ctx context.Context, flags *rootFlags, hooks app.Hooks) (*session, error) {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		return nil, err
	}
	a, err := app.Build(ctx, cfg, logger, hooks)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &session{app: a, log: logger, grace: cfg.StopGrace}, nil
}

func (s *session) close() error {
	// the scheduler may take its whole grace period before the final save
	ctx, cancel := context.WithTimeout(context.Background(), s.grace+10*time.Second)
	defer cancel()
	err := s.app.Shutdown(ctx)
	_ = s.log.Sync()
	return err
}

func consoleCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "console",
		Short:        "Interactive menu",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, flags)
		},
	}
}

func runConsole(cmd *cobra.Command, flags *rootFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	con := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), nil)
	s, err := open(ctx, flags, app.Hooks{OnStatusChange: con.OnStatusChange, OnCycle: con.OnCycle})
	if err != nil {
		return err
	}
	con.Engine, con.Logger = s.app.Engine, s.log
	runErr := con.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return multierr.Combine(runErr, s.close())
}

func runCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "run",
		Short:        "Monitor in the foreground until interrupted",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := console.New(nil, cmd.OutOrStdout(), nil)
			s, err := open(ctx, flags, app.Hooks{OnStatusChange: out.OnStatusChange, OnCycle: out.OnCycle})
			if err != nil {
				return err
			}
			if err := s.app.Engine.StartMonitoring(); err != nil {
				return multierr.Combine(err, s.close())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Monitoring %d servers, Ctrl+C to stop.\n", len(s.app.Engine.ListTargets()))
			<-ctx.Done()
			return s.close()
		},
	}
}

func listCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "Show configured servers and settings",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), flags, app.Hooks{})
			if err != nil {
				return err
			}
			con := console.New(nil, cmd.OutOrStdout(), s.log)
			con.Engine = s.app.Engine
			con.Dashboard()
			return s.close()
		},
	}
}

func addCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "add <server>...",
		Short:        "Add servers by IP or hostname",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), flags, app.Hooks{})
			if err != nil {
				return err
			}
			var errs []error
			for _, id := range args {
				t, err := s.app.Engine.AddTarget(cmd.Context(), id)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", t.ID)
			}
			return multierr.Combine(append(errs, s.close())...)
		},
	}
}

func removeCmd(flags *rootFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:          "remove <server>...",
		Short:        "Remove servers",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("name at least one server or pass --all")
			}
			s, err := open(cmd.Context(), flags, app.Hooks{})
			if err != nil {
				return err
			}
			if all {
				n := s.app.Engine.ClearTargets(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d servers\n", n)
				return s.close()
			}
			var errs []error
			for _, id := range args {
				if err := s.app.Engine.RemoveTarget(cmd.Context(), id); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
			}
			return multierr.Combine(append(errs, s.close())...)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove every server")
	return cmd
}

func settingsCmd(flags *rootFlags) *cobra.Command {
	var interval, maxFailures int
	cmd := &cobra.Command{
		Use:          "settings",
		Short:        "Show or change the check interval and alert threshold",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), flags, app.Hooks{})
			if err != nil {
				return err
			}
			cfg := s.app.Engine.Settings()
			if cmd.Flags().Changed("interval") {
				cfg.CheckIntervalSeconds = interval
			}
			if cmd.Flags().Changed("max-failures") {
				cfg.MaxConsecutiveFailures = maxFailures
			}
			if cfg != s.app.Engine.Settings() {
				if err := s.app.Engine.UpdateSettings(cmd.Context(), cfg); err != nil {
					return multierr.Combine(err, s.close())
				}
			}
			cur := s.app.Engine.Settings()
			fmt.Fprintf(cmd.OutOrStdout(), "check_interval=%d max_failures=%d\n",
				cur.CheckIntervalSeconds, cur.MaxConsecutiveFailures)
			return s.close()
		},
	}
	cmd.Flags().IntVar(&interval, "interval", domain.DefaultCheckIntervalSeconds,
		"seconds between check cycles (min "+strconv.Itoa(domain.MinCheckIntervalSeconds)+")")
	cmd.Flags().IntVar(&maxFailures, "max-failures", domain.DefaultMaxConsecutiveFailures,
		"consecutive failures before alerting")
	return cmd
}

func pingCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "ping <server>",
		Short:        "Check one server once without recording the result",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), flags, app.Hooks{})
			if err != nil {
				return err
			}
			ch, err := s.app.Engine.ProbeOnce(cmd.Context(), args[0])
			if err != nil {
				return multierr.Combine(err, s.close())
			}
			o := <-ch
			if o.Reachable {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is reachable (%d ms)\n", o.TargetID, o.LatencyMS)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is unreachable: %s\n", o.TargetID, o.Message)
			}
			return s.close()
		},
	}
}

func testNotifyCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "test-notify",
		Short:        "Send a test notification through the configured channels",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), flags, app.Hooks{})
			if err != nil {
				return err
			}
			ch, err := s.app.Engine.SendTestNotification(cmd.Context())
			if err != nil {
				return multierr.Combine(err, s.close())
			}
			if err := <-ch; err != nil {
				return multierr.Combine(err, s.close())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test notification sent via %s\n", s.app.Engine.NotifierName())
			return s.close()
		},
	}
}
