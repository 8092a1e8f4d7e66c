package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/domain"
	"github.com/vault-cli/envvault/internal/store"
)

type listOptions struct {
	category   string
	tags       []string
	search     string
	showValues bool
	asJSON     bool
	long       bool
}

type listEntry struct {
	Project     string   `json:"project"`
	Key         string   `json:"key"`
	Value       string   `json:"value,omitempty"`
	Category    string   `json:"category,omitempty"`
	Source      string   `json:"source,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	LastUpdated string   `json:"last_updated"`
}

func (a *app) listCommand() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List secrets in a project",
		Long: `List the secrets of the current project, with optional filtering.

Values are hidden unless --show-values is given. The --search flag matches
tokens against key, category, source and tags, using '+' or spaces as an
AND separator (e.g. 'stripe+prod').

Example:
  envvault list --project api
  envvault list --category database
  envvault list --tags prod,billing
  envvault list --search stripe+prod --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Filter by category")
	cmd.Flags().StringSliceVarP(&opts.tags, "tags", "t", nil, "Filter by tags (all must match)")
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "Search in key, category, source and tags")
	cmd.Flags().BoolVar(&opts.showValues, "show-values", false, "Include secret values")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output in JSON format")
	cmd.Flags().BoolVarP(&opts.long, "long", "l", false, "Show source, tags and update time")
	return cmd
}

func (a *app) runList(out io.Writer, opts listOptions) error {
	filter := &domain.Filter{
		Category:     opts.category,
		Tags:         opts.tags,
		SearchTokens: store.ParseSearchTokens(opts.search),
	}

	return a.withStore(false, func(s *store.FileStore) error {
		secrets, err := s.ListSecrets(a.project, filter)
		if err != nil {
			return err
		}

		entries := make([]listEntry, 0, len(secrets))
		for _, secret := range secrets {
			e := listEntry{
				Project:     a.project,
				Key:         secret.Key,
				Category:    secret.Category,
				Source:      secret.Source,
				Tags:        secret.Tags,
				LastUpdated: formatTime(secret.LastUpdated),
			}
			if opts.showValues {
				e.Value = secret.Value
			}
			entries = append(entries, e)
		}

		if opts.asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			return writeOutput(out, "No secrets found in project '%s'\n", a.project)
		}
		return writeListTable(out, entries, opts)
	})
}

func writeListTable(out io.Writer, entries []listEntry, opts listOptions) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := []string{"KEY", "CATEGORY"}
	if opts.showValues {
		header = append(header, "VALUE")
	}
	if opts.long {
		header = append(header, "SOURCE", "TAGS", "UPDATED")
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, e := range entries {
		row := []string{e.Key, dash(e.Category)}
		if opts.showValues {
			row = append(row, e.Value)
		}
		if opts.long {
			row = append(row, dash(e.Source), dash(strings.Join(e.Tags, ",")), e.LastUpdated)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
