// Command debug prints what the classifier would send for a stored item.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"onboarding-pr-miner/internal/adapter/repository"
	"onboarding-pr-miner/internal/classifier"
	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/config"
	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/port"
)

type openStoreFunc func(ctx context.Context, dsn string) (port.ItemStore, error)

func openPostgres(ctx context.Context, dsn string) (port.ItemStore, error) {
	return repository.Open(ctx, dsn)
}

func newRootCmd(open openStoreFunc) *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "debug",
		Short:         "Debugging helpers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./config.yaml)")

	var withPrompt bool
	contextCmd := &cobra.Command{
		Use:   "context <repo> <number>",
		Short: "Print the LLM context built for one stored item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[1])
			if err != nil || number <= 0 {
				return common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("invalid number %q", args[1]))
			}
			ref, err := domain.ParseRepoRef(args[0])
			if err != nil {
				return common.WrapError(common.ErrCodeInvalidInput, "invalid repository", err)
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return common.NewError(common.ErrCodeConfig, "DATABASE_URL is not set")
			}

			ctx := cmd.Context()
			store, err := open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			if c, ok := store.(io.Closer); ok {
				defer c.Close()
			}
			item, err := store.GetByKey(ctx, ref.FullName(), number)
			if err != nil {
				return err
			}
			if item == nil {
				return common.NewError(common.ErrCodeNotFound, fmt.Sprintf("%s #%d is not in the database", ref.FullName(), number))
			}
			return printContext(cmd.OutOrStdout(), item, withPrompt)
		},
	}
	contextCmd.Flags().BoolVar(&withPrompt, "prompt", false, "Print the full prompt instead of only the context")
	root.AddCommand(contextCmd)
	return root
}

func printContext(w io.Writer, item *domain.Item, withPrompt bool) error {
	text := classifier.BuildContext(item)
	if withPrompt {
		text = classifier.BuildPrompt(text)
	}
	if item.EnrichmentStatus != domain.StatusSuccess {
		fmt.Fprintf(w, "# note: enrichment status is %s\n", item.EnrichmentStatus)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func main() {
	if err := newRootCmd(openPostgres).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
