package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vault-cli/envvault/internal/audit"
	"github.com/vault-cli/envvault/internal/domain"
)

func (a *app) auditCommand() *cobra.Command {
	var (
		limit  int
		verify bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the vault operation journal",
		Long: `Show the journal of vault writes. Each record names the operation,
project and key, and whether the write reached disk. Secret values are
never recorded.

Example:
  envvault audit
  envvault audit --limit 50
  envvault audit --verify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.ResolvedAuditPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return writeOutput(cmd.OutOrStdout(), "No audit journal at %s\n", path)
			}

			journal, err := audit.Open(path, a.log())
			if err != nil {
				return err
			}
			defer func() {
				if err := journal.Close(); err != nil {
					a.log().Warn("failed to close audit journal", zap.Error(err))
				}
			}()

			out := cmd.OutOrStdout()
			if verify {
				if err := journal.Verify(); err != nil {
					return fmt.Errorf("audit journal verification failed: %w", err)
				}
				return printSuccess(out, "Audit journal is consistent")
			}

			ops, err := journal.List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ops)
			}
			if len(ops) == 0 {
				return writeOutput(out, "No operations recorded\n")
			}
			return writeAuditTable(out, ops)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show the latest n records (0 for all)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the journal for gaps and malformed records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.MarkFlagsMutuallyExclusive("verify", "json")
	return cmd
}

func writeAuditTable(out io.Writer, ops []*domain.Operation) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tOPERATION\tPROJECT\tKEY\tRESULT")
	for _, op := range ops {
		result := successMark("ok")
		if !op.Success {
			result = failMark("failed")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", formatTime(op.Timestamp), op.Type, dash(op.Project), dash(op.Key), result)
	}
	return w.Flush()
}
