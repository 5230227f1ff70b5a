package cli

import (
	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage provisioning keys",
	}

	keysCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cleanup := commandContext(cmd)
				defer cleanup()

				keys, err := a.keys().List(ctx)
				if err != nil {
					return err
				}
				return a.printJSON(cmd, keys)
			},
		},
		&cobra.Command{
			Use:   "create",
			Short: "Create a new key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cleanup := commandContext(cmd)
				defer cleanup()

				key, err := a.keys().Create(ctx)
				if err != nil {
					return err
				}
				return a.printJSON(cmd, key)
			},
		},
	)

	return keysCmd
}

func newSeatsCmd(a *app) *cobra.Command {
	seatsCmd := &cobra.Command{
		Use:   "seats",
		Short: "Inspect agent capacity",
	}

	seatsCmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Fail unless at least one seat is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			seats, err := a.seats().Ensure(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(cmd, seats)
		},
	})

	return seatsCmd
}
