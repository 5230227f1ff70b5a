// Package cli implements the propel command line.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/valory-xyz/propel-client-go/internal/agents"
	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/common"
	"github.com/valory-xyz/propel-client-go/internal/config"
	"github.com/valory-xyz/propel-client-go/internal/keys"
	"github.com/valory-xyz/propel-client-go/internal/lifecycle"
	"github.com/valory-xyz/propel-client-go/internal/seats"
	"github.com/valory-xyz/propel-client-go/internal/sessions"
	"github.com/valory-xyz/propel-client-go/internal/variables"
	"github.com/valory-xyz/propel-client-go/internal/waiter"
)

// app holds everything a command needs. It is built once per invocation in
// the persistent pre-run, so nothing session related lives in globals.
type app struct {
	cfg      *config.Config
	sessions *sessions.SessionManager
	api      *client.Client

	// Overridable in tests
	clock waiter.Clock
}

// preRunConfigE loads configuration before any command runs
func (a *app) preRunConfigE(cmd *cobra.Command, _ []string) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// check if verbose flag is set
	verbose, err := cmd.Flags().GetBool("verbose")
	if err == nil && verbose {
		config.EnableVerbose()
	}

	a.cfg = cfg
	a.sessions = cfg.SessionManager()

	a.api, err = client.New(cfg.ClientOptions(), a.sessions)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"url":     cfg.URL,
		"version": common.GetVersion(),
	}).Debugln("Client configured")

	return nil
}

func (a *app) agents() *agents.Controller {
	return agents.NewController(a.api)
}

func (a *app) variables() *variables.Manager {
	return variables.NewManager(a.api)
}

func (a *app) keys() *keys.Service {
	return keys.NewService(a.api)
}

func (a *app) seats() *seats.Service {
	return seats.NewService(a.api)
}

// waiter builds a state waiter that reports every poll on the command's
// output. A non-zero period overrides the configured one.
func (a *app) waiter(cmd *cobra.Command, period time.Duration) *waiter.Waiter {
	opts := a.cfg.WaiterOptions()
	if period > 0 {
		opts.Period = period
	}
	opts.Clock = a.clock
	opts.OnPoll = func(o waiter.Observation) {
		printObservation(cmd, o)
	}
	return waiter.New(a.agents(), opts)
}

func (a *app) lifecycle(cmd *cobra.Command, period time.Duration) *lifecycle.Lifecycle {
	return lifecycle.New(a.agents(), a.waiter(cmd, period), a.seats(), func(agent string, message string) {
		printProgress(cmd, agent, message)
	})
}

// commandContext returns a context cancelled on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, func()) {
	return common.WithInterrupt(cmd.Context())
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "propel",
		Short: "Propel client - manage agents, variables and keys on a Propel service",
		Long: `Propel client manages remotely hosted agents on a Propel service.

It keeps a login session between invocations, creates, restarts and deletes
agents, waits for them to reach a given state, manages deployment variables
and forwards calls to the inference API.

Configuration is read from config.yaml in the current directory,
~/.config/propel or /etc/propel, then from PROPEL_* environment variables,
then from flags.`,
		PersistentPreRunE: a.preRunConfigE,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringP("url", "U", "", fmt.Sprintf("Service base URL (default %s, env PROPEL_URL)", client.DefaultServiceURL))
	rootCmd.PersistentFlags().String("config", "", "Config file (default is ./config.yaml or ~/.config/propel/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().Duration("http-timeout", client.DefaultTimeout, "Timeout for a single HTTP request")
	rootCmd.PersistentFlags().Bool("insecure", false, "Skip TLS certificate verification")
	rootCmd.PersistentFlags().StringP("query", "q", "", "jq expression applied to JSON output ($url and $host are set)")

	rootCmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newCallCmd(a),
		newKeysCmd(a),
		newSeatsCmd(a),
		newAgentsCmd(a),
		newVariablesCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), DescribeError(err))
		return 1
	}

	return 0
}
