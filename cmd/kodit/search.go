package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var (
		server  string
		apiKey  string
		repoURL string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed snippets on a running kodit server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(server, apiKey)

			attributes := map[string]any{"text": args[0]}
			if repoURL != "" {
				attributes["repo_url"] = repoURL
			}
			if limit > 0 {
				attributes["limit"] = limit
			}
			body := map[string]any{
				"data": map[string]any{"type": "search", "attributes": attributes},
			}

			doc, err := client.post(cmd.Context(), "/api/v1/search", body)
			if err != nil {
				return err
			}
			results, err := doc.list()
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}

			for i, res := range results {
				printMatch(i+1, res.Attributes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Kodit server URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Bearer token for the server")
	cmd.Flags().StringVar(&repoURL, "repo", "", "Restrict the search to one repository URL")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func printMatch(rank int, attrs map[string]any) {
	path := "unknown"
	if derives, ok := attrs["derives_from"].([]any); ok && len(derives) > 0 {
		if first, ok := derives[0].(map[string]any); ok {
			if p, ok := first["path"].(string); ok {
				path = p
			}
		}
	}
	score, _ := attrs["score"].(float64)
	fmt.Printf("%d. %s (score %.4f)\n", rank, path, score)

	if content, ok := attrs["content"].(map[string]any); ok {
		if value, ok := content["value"].(string); ok {
			fmt.Println(value)
		}
	}
	if enrichment, ok := attrs["enrichment"].(string); ok && enrichment != "" {
		fmt.Printf("-- %s\n", enrichment)
	}
	fmt.Println()
}
