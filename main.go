package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"jira-mcp-server/internal/application"
	"jira-mcp-server/internal/domain"
	"jira-mcp-server/internal/infrastructure"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "jira-mcp-server",
		Short: "MCP server exposing the Jira REST API as assistant-callable tools",
		Long: "jira-mcp-server exposes a Jira Cloud instance as a set of schema-validated\n" +
			"MCP tools: project and issue lookup, JQL search, issue creation and update,\n" +
			"workflow transitions, comments, and epic management.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML configuration file (environment-only when omitted)")

	root.AddCommand(newToolsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func runServe(ctx context.Context, configPath string) error {
	config, err := domain.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Stdout carries MCP framing on the stdio transport; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: domain.ParseLogLevel(config.Log.Level),
	}))

	httpClient, err := domain.NewAuthenticatedClient(domain.Credentials{
		Username: config.Jira.Username,
		APIToken: config.Jira.APIToken,
	})
	if err != nil {
		return fmt.Errorf("failed to create authenticated client: %w", err)
	}
	defer httpClient.CloseIdleConnections()

	client := infrastructure.NewJiraClient(config.Jira.BaseURL, httpClient, logger)
	handler := application.NewJiraHandler(client, config.Jira.DefaultProject, logger)
	srv := application.NewServer(handler, config, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("configuration loaded",
		"base_url", config.Jira.BaseURL,
		"transport", config.Transport.Type,
		"default_project", config.Jira.DefaultProject)

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("server shutdown complete")
	return nil
}

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog",
		Run: func(cmd *cobra.Command, args []string) {
			handler := application.NewJiraHandler(nil, "", nil)
			for _, tool := range handler.Catalog() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n    %s\n", tool.Name, tool.Description)
				if len(tool.InputSchema.Required) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "    required: %s\n", strings.Join(tool.InputSchema.Required, ", "))
				}
			}
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", application.ServerName, application.ServerVersion)
		},
	}
}
