package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juridai/lexrag"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question against the knowledge base",
	Long: `Embeds the question, retrieves the most relevant passages and generates
an answer grounded exclusively in them.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
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

	answer, err := engine.Answer(ctx, args[0])
	if errors.Is(err, lexrag.ErrKnowledgeBaseEmpty) {
		cmd.Println("The knowledge base is empty. Ingest documents first with `lexrag ingest`.")
		return nil
	}
	if err != nil {
		return err
	}

	if queryJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for n, src := range answer.Sources {
			cmd.Printf("  [%d] %s\n", n+1, src.Source())
		}
	}
	return nil
}
