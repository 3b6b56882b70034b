package main

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "lexrag",
	Short: "Legal document ingestion and retrieval-augmented question answering",
	Long: `lexrag maintains a durable vector index of legal documents and answers
questions grounded exclusively in the indexed passages.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to YAML config file (defaults to ./lexrag.yaml or ~/.config/lexrag/config.yaml)")
}
