// Command ideasctl drives the ideas API from a terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ideaspark/hub/internal/models"
	"github.com/ideaspark/hub/pkg/hub"
)

type clientFlags struct {
	baseURL string
	apiKey  string
}

func (f *clientFlags) client() (*hub.Client, error) {
	if f.apiKey == "" {
		return nil, errors.New("an API key is required (--api-key or API_KEY)")
	}

	return hub.NewClient(f.baseURL, f.apiKey), nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	flags := &clientFlags{}

	rootCmd := &cobra.Command{
		Use:          "ideasctl",
		Short:        "Command-line client for the ideas API",
		Long:         "Seed demo ideas, print the idea map layout and query for similar ideas against a running ideas API.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", envOr("IDEAS_API_URL", "http://localhost:8080"), "Ideas API base URL")
	rootCmd.PersistentFlags().StringVar(&flags.apiKey, "api-key", os.Getenv("API_KEY"), "API key sent as a Bearer token")

	rootCmd.AddCommand(createSeedCommand(flags, out))
	rootCmd.AddCommand(createImportCommand(flags, out))
	rootCmd.AddCommand(createLayoutCommand(flags, out))
	rootCmd.AddCommand(createMatchCommand(flags, out))
	rootCmd.AddCommand(createEmbedCommand(flags, out))

	return rootCmd
}

func createSeedCommand(flags *clientFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo ideas",
		Long:  "Insert the five demo ideas through the import endpoint. Their embeddings are computed by the server's workers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}

			resp, err := client.ImportIdeas(cmd.Context(), demoIdeas())
			if err != nil {
				return fmt.Errorf("failed to import demo ideas: %w", err)
			}

			for _, idea := range resp.Data {
				fmt.Fprintf(out, "%d\t%s\n", idea.ID, idea.Author)
			}

			fmt.Fprintf(out, "seeded %d ideas\n", resp.Count)

			return nil
		},
	}
}

func createLayoutCommand(flags *clientFlags, out io.Writer) *cobra.Command {
	var query models.LayoutQuery
	var margin float64
	var snapshot bool

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the idea map layout as JSON",
		Long:  "Compute a layout of the embedded ideas, or fetch the latest background snapshot with --snapshot, and print it as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}

			if snapshot {
				snap, err := client.Snapshot(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to fetch layout snapshot: %w", err)
				}

				return writeJSON(out, snap)
			}

			if cmd.Flags().Changed("margin") {
				query.Margin = &margin
			}

			result, err := client.Layout(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("failed to compute layout: %w", err)
			}

			return writeJSON(out, result)
		},
	}

	cmd.Flags().Float64Var(&query.Width, "width", 0, "Viewport width (0 = server default)")
	cmd.Flags().Float64Var(&query.Height, "height", 0, "Viewport height (0 = server default)")
	cmd.Flags().Float64Var(&margin, "margin", 0, "Viewport margin as a fraction of each side (server default when unset)")
	cmd.Flags().IntVar(&query.Limit, "limit", 0, "Maximum number of newest ideas to place (0 = server default)")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "Print the background snapshot instead of computing a layout")

	return cmd
}

func createMatchCommand(flags *clientFlags, out io.Writer) *cobra.Command {
	var req models.MatchIdeasRequest
	var text string
	var embedding string
	var threshold float64
	var limit int

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find ideas similar to a text or an embedding",
		Long:  "Query the ideas most similar to --text or a comma-separated --embedding, leaving out ideas by --exclude-author.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (text == "") == (embedding == "") {
				return errors.New("exactly one of --text and --embedding is required")
			}

			if text != "" {
				req.Text = &text
			} else {
				vector, err := parseEmbedding(embedding)
				if err != nil {
					return err
				}

				req.Embedding = vector
			}

			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}
			if cmd.Flags().Changed("limit") {
				req.Limit = &limit
			}

			client, err := flags.client()
			if err != nil {
				return err
			}

			resp, err := client.Match(cmd.Context(), &req)
			if err != nil {
				return fmt.Errorf("failed to match: %w", err)
			}

			return writeJSON(out, resp)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to embed and match")
	cmd.Flags().StringVar(&embedding, "embedding", "", "Comma-separated embedding vector, e.g. 0.1,0.2,0.3")
	cmd.Flags().StringVar(&req.ExcludeAuthor, "exclude-author", "", "Leave out ideas by this author")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum cosine similarity, exclusive (server default when unset)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of matches (server default when unset)")

	return cmd
}

func createEmbedCommand(flags *clientFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>",
		Short: "Print the server's embedding of a text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}

			embedding, err := client.Embed(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to embed: %w", err)
			}

			return writeJSON(out, models.EmbedResponse{Embedding: embedding, Dimensions: len(embedding)})
		},
	}
}

// parseEmbedding parses a comma-separated list of numbers.
func parseEmbedding(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vector := make([]float32, 0, len(parts))

	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid embedding component %d: %q", i, part)
		}

		vector = append(vector, float32(v))
	}

	return vector, nil
}

func demoIdeas() []models.CreateIdeaRequest {
	return []models.CreateIdeaRequest{
		{
			Author:  "Dr. Chen (CV)",
			Content: "Attention in transformers can be optimized with sparse matrices, bringing the cost down from O(n^2) to O(n log n).",
		},
		{
			Author:  "Alex (NLP)",
			Content: "Exploring quantization for Llama 3. 4-bit quantization seems to halve memory while keeping 95% of the performance.",
		},
		{
			Author:  "Charlie (Robotics)",
			Content: "The arm's inverse kinematics solver keeps failing near singularities; trying damped least squares for the control problem.",
		},
		{
			Author:  "Diana (Bio)",
			Content: "Clustering gene sequences with contrastive learning. Results look promising but training is unstable.",
		},
		{
			Author:  "Zhou (FinTech)",
			Content: "Looking into financial time series forecasting. Do transformers actually work for stock prediction with this much noise?",
		},
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
