package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valory-xyz/propel-client-go/internal/common"
	"github.com/valory-xyz/propel-client-go/internal/models"
	"github.com/valory-xyz/propel-client-go/internal/variables"
)

func varTypeNames() string {
	names := make([]string, 0, len(models.VarTypes))
	for _, t := range models.VarTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, "|")
}

func newVariablesCmd(a *app) *cobra.Command {
	variablesCmd := &cobra.Command{
		Use:     "variables",
		Aliases: []string{"vars"},
		Short:   "Manage deployment variables",
	}

	var showValues bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			vars, err := a.variables().List(ctx)
			if err != nil {
				return err
			}

			for i := range vars {
				vars[i].Value = common.MaskValue(vars[i].Value, showValues)
			}

			return a.printJSON(cmd, vars)
		},
	}
	listCmd.Flags().BoolVar(&showValues, "show-values", false, "Print values instead of masking them")

	createCmd := &cobra.Command{
		Use:   fmt.Sprintf("create <name> <key> <json-value> [%s]", varTypeNames()),
		Short: "Create a variable, or replace the value of an existing one",
		Long: `Create a variable, or replace the value of an existing one with the same
name. Without an explicit type the type is inferred from the value: JSON
strings, numbers, booleans, objects, arrays and null map to str, int/float,
bool, dict, list and none. Anything that is not JSON is a str. A JSON string
is stored without its quotes, so '"abc"' and 'abc' store the same value.`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var explicitType string
			if len(args) == 4 {
				explicitType = args[3]
			}

			value, varType, err := variables.ParseValue(args[2], explicitType)
			if err != nil {
				return err
			}

			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			variable, err := a.variables().CreateOrUpdate(ctx, models.Variable{
				Name:  args[0],
				Key:   args[1],
				Value: value,
				Type:  varType,
			})
			if err != nil {
				return err
			}

			return a.printJSON(cmd, variable)
		},
	}

	variablesCmd.AddCommand(listCmd, createCmd)

	return variablesCmd
}
