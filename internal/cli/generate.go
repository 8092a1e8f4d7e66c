package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/domain"
	"github.com/vault-cli/envvault/internal/secretgen"
	"github.com/vault-cli/envvault/internal/store"
)

type generateOptions struct {
	length    int
	charset   string
	words     int
	separator string
	setKey    string
	category  string
	tags      []string
	copy      bool
}

func (a *app) generateCommand() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate a random secret value",
		Long: `Generate a random value, print it, and optionally store it.

With --set the value is stored under KEY in the current project, replacing
any existing value, and is not printed. --words produces a word-based
passphrase instead of a character string.

Charsets: alnum, env (alnum plus -_.), hex, symbols.

Example:
  envvault generate --length 48
  envvault generate --charset hex --length 64 --set SESSION_SECRET
  envvault generate --words 5 --separator .
  envvault generate --copy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.length, "length", "l", 32, "Number of characters")
	cmd.Flags().StringVar(&opts.charset, "charset", string(secretgen.CharsetEnvSafe), "Character set: "+charsetNames())
	cmd.Flags().IntVar(&opts.words, "words", 0, "Generate a passphrase of this many words")
	cmd.Flags().StringVar(&opts.separator, "separator", "-", "Word separator for --words")
	cmd.Flags().StringVar(&opts.setKey, "set", "", "Store the value under this key in the current project")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Category when storing with --set")
	cmd.Flags().StringSliceVarP(&opts.tags, "tags", "t", nil, "Tags when storing with --set")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy the value to the clipboard")
	cmd.MarkFlagsMutuallyExclusive("words", "length")
	cmd.MarkFlagsMutuallyExclusive("words", "charset")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, opts generateOptions) error {
	var (
		value string
		err   error
	)
	if opts.words > 0 {
		value, err = secretgen.Passphrase(opts.words, opts.separator)
	} else {
		value, err = secretgen.Generate(opts.length, secretgen.Charset(opts.charset))
	}
	if err != nil {
		return fmt.Errorf("failed to generate value: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.setKey != "" {
		if err := a.storeGenerated(cmd, opts, value); err != nil {
			return err
		}
	} else if !opts.copy {
		if err := writeOutput(out, "%s\n", value); err != nil {
			return err
		}
	}

	if opts.copy {
		name := opts.setKey
		if name == "" {
			name = "generated value"
		}
		return a.copyToClipboard(cmd, name, value, true)
	}
	return nil
}

// storeGenerated adds the key, or replaces the value when it already exists
func (a *app) storeGenerated(cmd *cobra.Command, opts generateOptions, value string) error {
	return a.withStore(false, func(s *store.FileStore) error {
		entry := &domain.SecretEntry{
			Key:      opts.setKey,
			Value:    value,
			Source:   "generated",
			Category: opts.category,
			Tags:     opts.tags,
		}

		err := s.AddSecret(a.project, entry)
		if errors.Is(err, store.ErrProjectNotFound) {
			if err := s.CreateProject(a.project, ""); err != nil {
				return err
			}
			err = s.AddSecret(a.project, entry)
		}
		if errors.Is(err, store.ErrSecretExists) {
			if err := s.UpdateSecret(a.project, opts.setKey, domain.SecretPatch{Value: &value}); err != nil {
				return err
			}
			return printSuccess(cmd.OutOrStdout(), "Secret '%s' regenerated in project '%s'", opts.setKey, a.project)
		}
		if err != nil {
			return err
		}
		return printSuccess(cmd.OutOrStdout(), "Secret '%s' generated in project '%s'", opts.setKey, a.project)
	})
}

func charsetNames() string {
	names := make([]string, 0, len(secretgen.Charsets()))
	for _, c := range secretgen.Charsets() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
