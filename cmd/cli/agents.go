package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/valory-xyz/propel-client-go/internal/common"
	"github.com/valory-xyz/propel-client-go/internal/lifecycle"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

// createFlags are shared by "agents create" and "agents deploy".
type createFlags struct {
	key                      int
	name                     string
	serviceIPFSHash          string
	variables                string
	chainID                  int
	tokenID                  int
	ingressEnabled           bool
	tendermintIngressEnabled bool
}

func (f *createFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.key, "key", 0, "Key id the agent is created with")
	cmd.Flags().StringVar(&f.name, "name", "", "Agent name, unique per account")
	cmd.Flags().StringVar(&f.serviceIPFSHash, "service-ipfs-hash", "", "IPFS hash of the service to run")
	cmd.Flags().StringVar(&f.variables, "variables", "", "Comma separated variable names")
	cmd.Flags().IntVar(&f.chainID, "chain-id", 0, "Chain id")
	cmd.Flags().IntVar(&f.tokenID, "token-id", 0, "Service token id")
	cmd.Flags().BoolVar(&f.ingressEnabled, "ingress-enabled", false, "Expose the agent over HTTP")
	cmd.Flags().BoolVar(&f.tendermintIngressEnabled, "tendermint-ingress-enabled", false, "Expose the tendermint node")

	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("service-ipfs-hash")
}

func (f *createFlags) request() models.AgentCreateRequest {
	return models.AgentCreateRequest{
		Key:                      f.key,
		Name:                     f.name,
		ServiceIPFSHash:          f.serviceIPFSHash,
		ChainID:                  f.chainID,
		TokenID:                  f.tokenID,
		IngressEnabled:           f.ingressEnabled,
		Variables:                common.SplitList(f.variables),
		TendermintIngressEnabled: f.tendermintIngressEnabled,
	}
}

// waitFlags are shared by every command that waits on an agent.
type waitFlags struct {
	timeout string
	period  time.Duration
}

func (f *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.timeout, "timeout", "", "How long to wait: seconds (120), duration (2m) or ISO 8601 (PT2M). Defaults to wait.timeout")
	cmd.Flags().DurationVar(&f.period, "period", 0, "Delay between polls. Defaults to wait.period")
}

func (f *waitFlags) resolveTimeout(a *app) (time.Duration, error) {
	if len(f.timeout) == 0 {
		return a.cfg.Wait.Timeout, nil
	}
	return common.ParseTimeout(f.timeout)
}

func newAgentsCmd(a *app) *cobra.Command {
	agentsCmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage agents",
	}

	agentsCmd.AddCommand(
		newAgentsListCmd(a),
		newAgentsGetCmd(a),
		newAgentsCreateCmd(a),
		newAgentsDeployCmd(a),
		newAgentsWaitCmd(a),
		newAgentsEnsureDeletedCmd(a),
		newAgentsActionCmd(a, "restart", "Restart an agent"),
		newAgentsActionCmd(a, "stop", "Stop a running agent"),
		newAgentsActionCmd(a, "delete", "Delete an agent"),
	)

	return agentsCmd
}

func newAgentsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			agents, err := a.agents().List(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(cmd, agents)
		},
	}
}

func newAgentsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			agent, err := a.agents().Describe(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(cmd, agent)
		},
	}
}

func newAgentsCreateCmd(a *app) *cobra.Command {
	var flags createFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		Long: `Create an agent. Creation fails if an agent with the same name exists;
run "agents ensure-deleted" first to replace one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			agent, err := a.agents().Create(ctx, flags.request())
			if err != nil {
				return err
			}
			return a.printJSON(cmd, agent)
		},
	}

	flags.register(cmd)
	return cmd
}

func newAgentsDeployCmd(a *app) *cobra.Command {
	var (
		flags     createFlags
		wait      waitFlags
		noRestart bool
		noDelete  bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Replace an agent and wait for it to start",
		Long: `Check seats, delete any agent with the same name, create the agent, wait
for it to be DEPLOYED, restart it and wait for it to be STARTED.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := wait.resolveTimeout(a)
			if err != nil {
				return err
			}

			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			agent, err := a.lifecycle(cmd, wait.period).Deploy(ctx, lifecycle.DeployRequest{
				Agent:    flags.request(),
				Timeout:  timeout,
				Teardown: !noDelete,
				Restart:  !noRestart,
			})
			if err != nil {
				return err
			}
			return a.printJSON(cmd, agent)
		},
	}

	flags.register(cmd)
	wait.register(cmd)
	cmd.Flags().BoolVar(&noRestart, "no-restart", false, "Stop once the agent is DEPLOYED")
	cmd.Flags().BoolVar(&noDelete, "no-delete", false, "Do not delete an existing agent first")

	return cmd
}

func newAgentsWaitCmd(a *app) *cobra.Command {
	var wait waitFlags

	cmd := &cobra.Command{
		Use:   "wait <name> <STATE>",
		Short: "Wait for an agent to reach a state",
		Long: fmt.Sprintf(`Poll the agent until it reports STATE. Fails on timeout, when the agent
enters a state it cannot leave towards STATE, when the service stays
unreachable, or on any other error.

Known states: %v`, models.KnownAgentStates),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := wait.resolveTimeout(a)
			if err != nil {
				return err
			}

			target := models.ParseAgentState(args[1])

			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			result, err := a.waiter(cmd, wait.period).Wait(ctx, args[0], target, timeout)
			if err != nil {
				return err
			}

			printProgress(cmd, args[0], fmt.Sprintf("reached %s after %s",
				successStyle.Render(string(target)), common.FormatDuration(result.Elapsed)))
			return nil
		},
	}

	wait.register(cmd)
	return cmd
}

func newAgentsEnsureDeletedCmd(a *app) *cobra.Command {
	var wait waitFlags

	cmd := &cobra.Command{
		Use:   "ensure-deleted <name>",
		Short: "Delete an agent if it exists and wait until it is gone",
		Long: `Stop the agent if it is running, delete it and wait until the service no
longer knows it. An agent that does not exist is already deleted, so running
this twice is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := wait.resolveTimeout(a)
			if err != nil {
				return err
			}

			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			return a.lifecycle(cmd, wait.period).Teardown(ctx, args[0], timeout)
		},
	}

	wait.register(cmd)
	return cmd
}

// newAgentsActionCmd builds the single request commands that do not wait.
func newAgentsActionCmd(a *app, action string, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			controller := a.agents()

			var (
				agent *models.Agent
				err   error
			)

			switch action {
			case "restart":
				agent, err = controller.Restart(ctx, args[0])
			case "stop":
				agent, err = controller.Stop(ctx, args[0])
			case "delete":
				agent, err = controller.Delete(ctx, args[0])
			default:
				return fmt.Errorf("unknown agent action: %s", action)
			}

			if err != nil {
				return err
			}
			return a.printJSON(cmd, agent)
		},
	}
}
