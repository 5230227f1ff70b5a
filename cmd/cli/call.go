package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valory-xyz/propel-client-go/internal/common"
)

func newCallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "call <path> [json-body|-]",
		Aliases: []string{"openai"},
		Short:   "Forward a request to the inference API through the service",
		Long: `Forward a single request to the inference API. The body may be JSON or
YAML; "-" reads it from stdin. The answer is printed as returned.`,
		Example: `  propel call /v1/chat/completions '{"model": "gpt-4", "messages": []}'
  cat request.yaml | propel call /v1/chat/completions -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any

			if len(args) == 2 {
				raw := []byte(args[1])
				if args[1] == "-" {
					data, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("failed to read body from stdin: %w", err)
					}
					raw = data
				}

				if len(strings.TrimSpace(string(raw))) > 0 {
					decoded, err := common.DecodePayload(raw)
					if err != nil {
						return err
					}
					payload = decoded
				}
			}

			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			result, err := a.api.Call(ctx, args[0], payload)
			if err != nil {
				return err
			}

			return a.printJSON(cmd, result)
		},
	}
}
