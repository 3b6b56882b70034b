package main

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file ...]",
	Short: "Add documents to the knowledge base",
	Long: `Loads each file, splits it into overlapping passages, embeds them and
persists the updated index. PDF and plain-text files are supported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	engine, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	total := 0
	for _, path := range args {
		count, err := engine.Ingest(ctx, path)
		if err != nil {
			return err
		}
		cmd.Printf("%s: %d passages\n", path, count)
		total += count
	}
	cmd.Printf("Ingested %d passages from %d files.\n", total, len(args))
	return nil
}
