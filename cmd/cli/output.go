package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/common"
	"github.com/valory-xyz/propel-client-go/internal/query"
	"github.com/valory-xyz/propel-client-go/internal/seats"
	"github.com/valory-xyz/propel-client-go/internal/waiter"
)

// printJSON writes value as indented JSON, filtered through --query when
// one was given. Each value the query emits goes on its own line.
func (a *app) printJSON(cmd *cobra.Command, value any) error {
	out := cmd.OutOrStdout()

	expression, _ := cmd.Flags().GetString("query")
	if len(strings.TrimSpace(expression)) == 0 {
		return writeJSON(out, value)
	}

	results, err := query.Evaluate(expression, value, a.queryVariables())
	if err != nil {
		return err
	}

	for _, result := range results {
		// Strings print bare so they can be used in shell scripts
		if s, ok := result.(string); ok {
			fmt.Fprintln(out, s)
			continue
		}
		if err := writeJSON(out, result); err != nil {
			return err
		}
	}

	return nil
}

// queryVariables are available to --query expressions as $url and $host.
func (a *app) queryVariables() map[string]any {
	if a.cfg == nil {
		return nil
	}
	return map[string]any{
		"url":  a.cfg.URL,
		"host": a.cfg.GetHostname(),
	}
}

func writeJSON(out io.Writer, value any) error {
	if raw, ok := value.(json.RawMessage); ok {
		normalized, err := query.Normalize(raw)
		if err != nil {
			// Not JSON, print what the service sent
			_, err = fmt.Fprintln(out, string(raw))
			return err
		}
		value = normalized
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}

func agentPrefix(agent string) string {
	return agentLabelStyle.Render(fmt.Sprintf("[Agent: %s]", agent))
}

func printProgress(cmd *cobra.Command, agent string, message string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", agentPrefix(agent), message)
}

func printObservation(cmd *cobra.Command, o waiter.Observation) {
	var line string

	switch {
	case o.Err != nil && o.Next > 0:
		line = fmt.Sprintf("poll %d failed (%s), retrying in %s",
			o.Poll, client.KindOf(o.Err), common.FormatDuration(o.Next))
	case o.Err != nil:
		return
	case o.Next > 0:
		line = fmt.Sprintf("state: %s, waiting for %s for next %s",
			stateStyle(o.State).Render(string(o.State)), o.Target, common.FormatDuration(o.Next))
	default:
		line = fmt.Sprintf("state: %s", stateStyle(o.State).Render(string(o.State)))
	}

	printProgress(cmd, o.Agent, line)
}

// DescribeError renders an error for the user: its kind first, then the
// details, then a hint when the user can act on it.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	var waitErr *waiter.WaitError
	if errors.As(err, &waitErr) {
		msg := fmt.Sprintf("%s: %s", errorStyle.Render("wait failed ("+string(waitErr.Reason)+")"), waitErr.Error())
		msg += fmt.Sprintf("\nlast state: %s, elapsed: %s, polls: %d",
			lastState(waitErr), common.FormatDuration(waitErr.Elapsed), waitErr.Polls)
		if client.IsUnauthenticated(err) {
			msg += "\n" + loginHint()
		}
		return msg
	}

	switch {
	case client.IsUnauthenticated(err):
		return fmt.Sprintf("%s: %v\n%s", errorStyle.Render("unauthenticated"), err, loginHint())
	case errors.Is(err, seats.ErrNoSeats):
		return fmt.Sprintf("%s: %v", errorStyle.Render("no seats"), err)
	case client.KindOf(err) != 0:
		return fmt.Sprintf("%s: %v", errorStyle.Render(client.KindOf(err).String()), err)
	default:
		return fmt.Sprintf("%s: %v", errorStyle.Render("error"), err)
	}
}

func lastState(err *waiter.WaitError) string {
	if len(err.LastState) == 0 {
		return "unknown"
	}
	return string(err.LastState)
}

func loginHint() string {
	return warningStyle.Render("Please login first: propel login")
}
