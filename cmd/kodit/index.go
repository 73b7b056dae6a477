package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func indexCmd() *cobra.Command {
	var (
		server    string
		apiKey    string
		branch    string
		trackTags bool
	)

	cmd := &cobra.Command{
		Use:   "index <uri>",
		Short: "Ask a running kodit server to index a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(server, apiKey)

			attributes := map[string]any{"source_uri": args[0]}
			if branch != "" {
				attributes["branch"] = branch
			}
			if trackTags {
				attributes["track_tags"] = true
			}
			body := map[string]any{
				"data": map[string]any{"type": "index", "attributes": attributes},
			}

			doc, err := client.post(cmd.Context(), "/api/v1/indexes", body)
			if err != nil {
				return err
			}
			res, err := doc.single()
			if err != nil {
				return err
			}

			fmt.Printf("index %s accepted: %v\n", res.ID, res.Attributes["source_uri"])
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Kodit server URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Bearer token for the server")
	cmd.Flags().StringVar(&branch, "branch", "", "Track a specific branch instead of the default")
	cmd.Flags().BoolVar(&trackTags, "track-tags", false, "Track the latest version tag instead of a branch")

	return cmd
}
