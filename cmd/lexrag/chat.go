package main

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive consultation",
	Long: `Starts an interactive session. Questions and answers are persisted in
the user's conversation so history survives restarts.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "local", "user the conversation belongs to")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, closeStore, err := buildChatService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck

	cmd.Println("Ask a legal question (empty line to quit).")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			break
		}

		reply, err := svc.Ask(ctx, chatUser, question)
		if err != nil {
			return err
		}

		cmd.Println(reply.Text)
		for n, citation := range reply.Citations {
			cmd.Printf("  [%d] %s\n", n+1, citation.Text)
		}
		cmd.Println()
	}
	return scanner.Err()
}
