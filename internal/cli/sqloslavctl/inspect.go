package sqloslavctl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/IvanVatroslav/SQLoslav/internal/classify"
	"github.com/IvanVatroslav/SQLoslav/internal/command"
	"github.com/IvanVatroslav/SQLoslav/internal/sqlguard"
)

// newInspectCommand runs the parser, classifier and validator locally, with
// no service involved.
func newInspectCommand() *cobra.Command {
	var trigger, defaultBackend string
	cmd := &cobra.Command{
		Use:   "inspect <message>",
		Short: "Parse, classify and validate a chat message offline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser, err := command.NewParser(trigger, defaultBackend)
			if err != nil {
				return err
			}
			table, err := inspectMessage(parser, strings.Join(args, " "))
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			rendered, err := pterm.DefaultTable.WithHasHeader().WithData(table).Srender()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
	cmd.Flags().StringVar(&trigger, "trigger", "sqloslav", "trigger word")
	cmd.Flags().StringVar(&defaultBackend, "default-backend", "POSTGRES", "backend used when the message names none")
	return cmd
}

func inspectMessage(parser *command.Parser, message string) (pterm.TableData, error) {
	cmd, err := parser.Parse(message)
	if err != nil {
		return nil, err
	}
	table := pterm.TableData{
		{"Field", "Value"},
		{"backend", cmd.Backend},
		{"explicit backend", strconv.FormatBool(cmd.ExplicitBackend)},
		{"debug", strconv.FormatBool(cmd.Debug)},
		{"payload", cmd.Payload},
	}
	if cmd.IsHelp() {
		return append(table, []string{"intent", "help"}), nil
	}

	if !cmd.ExplicitBackend && classify.IsNaturalLanguage(cmd.Payload) {
		return append(table, []string{"intent", "natural language"}), nil
	}
	table = append(table, []string{"intent", "sql"})
	verdict := sqlguard.Validate(cmd.Payload)
	if verdict.Valid {
		return append(table, []string{"validation", "valid"}), nil
	}
	return append(table, []string{"validation", strings.Join(verdict.Issues, "; ")}), nil
}
