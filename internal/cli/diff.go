package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/domain"
	"github.com/vault-cli/envvault/internal/envfile"
	"github.com/vault-cli/envvault/internal/store"
)

// errDiffFound is returned by diff --exit-code when the sides differ
var errDiffFound = errors.New("env file and project differ")

type envDiff struct {
	Added   []string // only in the file
	Removed []string // only in the project
	Changed []string
}

func (d envDiff) empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

func (a *app) diffCommand() *cobra.Command {
	var (
		showValues bool
		exitCode   bool
	)

	cmd := &cobra.Command{
		Use:   "diff <file>",
		Short: "Compare an env file with a project",
		Long: `Show how an env file differs from the current project.

Lines starting with '-' exist only in the vault, lines starting with '+'
only in the file. Values are replaced by a short fingerprint unless
--show-values is given.

Example:
  envvault diff .env --project api
  envvault diff .env --exit-code && echo "in sync"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readEnvSource(args[0])
			if err != nil {
				return err
			}

			var exported string
			err = a.withStore(false, func(s *store.FileStore) error {
				exported, err = s.ExportEnv(domain.ExportOptions{Project: a.project})
				return err
			})
			if err != nil {
				return err
			}

			vault := envfile.Parse(exported)
			file := envfile.Parse(text)

			out := cmd.OutOrStdout()
			d := compareEnv(vault, file)
			if d.empty() {
				return printSuccess(out, "No differences between %s and project '%s'", args[0], a.project)
			}

			if err := writeLineDiff(out, renderEnv(vault, showValues), renderEnv(file, showValues)); err != nil {
				return err
			}
			if err := writeOutput(out, "\n%d added, %d removed, %d changed\n", len(d.Added), len(d.Removed), len(d.Changed)); err != nil {
				return err
			}
			if exitCode {
				return errDiffFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showValues, "show-values", false, "Show values instead of fingerprints")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with an error when differences are found")
	return cmd
}

// compareEnv compares keys and values of the vault side against the file side
func compareEnv(vault, file *envfile.Map) envDiff {
	var d envDiff
	for _, p := range file.Pairs() {
		v, ok := vault.Get(p.Key)
		switch {
		case !ok:
			d.Added = append(d.Added, p.Key)
		case v != p.Value:
			d.Changed = append(d.Changed, p.Key)
		}
	}
	for _, p := range vault.Pairs() {
		if _, ok := file.Get(p.Key); !ok {
			d.Removed = append(d.Removed, p.Key)
		}
	}
	return d
}

// renderEnv serializes m sorted by key so ordering differences do not show up
func renderEnv(m *envfile.Map, showValues bool) string {
	pairs := m.Pairs()
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })

	sorted := envfile.NewMap()
	for _, p := range pairs {
		value := p.Value
		if !showValues {
			value = fingerprint(value)
		}
		sorted.Set(p.Key, value)
	}
	return envfile.Serialize(sorted)
}

func fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return "sha256:" + hex.EncodeToString(sum[:4])
}

func writeLineDiff(out io.Writer, before, after string) error {
	dmp := diffmatchpatch.New()

	chars1, chars2, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	for _, d := range diffs {
		var mark func(a ...interface{}) string
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			mark, prefix = failMark, "- "
		case diffmatchpatch.DiffInsert:
			mark, prefix = successMark, "+ "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			if err := writeString(out, mark(prefix+strings.TrimSuffix(line, "\n"))+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
