package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ideaspark/hub/internal/ingest"
	"github.com/ideaspark/hub/internal/models"
)

// importBatchSize is the largest batch the import endpoint accepts.
const importBatchSize = 100

// csvStats tracks one CSV read.
type csvStats struct {
	TotalRows    int
	SkippedEmpty int
	Invalid      int
}

type csvColumns struct {
	author, title, content, embedding int
}

func createImportCommand(flags *clientFlags, out io.Writer) *cobra.Command {
	var filePath string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import ideas from a CSV file",
		Long: "Import ideas from a CSV file with a header row naming the author and content columns, " +
			"plus optional title and embedding (\"[0.1,0.2,...]\") columns. Rows are sent in batches of 100.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", filePath, err)
			}
			defer func() { _ = file.Close() }()

			ideas, stats, err := readIdeasCSV(file, out)
			if err != nil {
				return err
			}

			created := 0
			if !dryRun && len(ideas) > 0 {
				client, err := flags.client()
				if err != nil {
					return err
				}

				for start := 0; start < len(ideas); start += importBatchSize {
					end := min(start+importBatchSize, len(ideas))

					resp, err := client.ImportIdeas(cmd.Context(), ideas[start:end])
					if err != nil {
						return fmt.Errorf("failed to import rows %d-%d after %d created: %w", start+1, end, created, err)
					}

					created += resp.Count
				}
			}

			fmt.Fprintf(out, "rows: %d, skipped empty: %d, invalid: %d, created: %d\n",
				stats.TotalRows, stats.SkippedEmpty, stats.Invalid, created)

			if dryRun {
				fmt.Fprintf(out, "dry run: %d ideas would be imported\n", len(ideas))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the CSV file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse the CSV but don't call the API")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readIdeasCSV reads ideas from r. Rows without author or content are skipped; rows with an
// unparseable embedding are reported on warn and left out.
func readIdeasCSV(r io.Reader, warn io.Writer) ([]models.CreateIdeaRequest, csvStats, error) {
	var stats csvStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, stats, err
	}

	var ideas []models.CreateIdeaRequest

	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("row %d: %w", rowNum, err)
		}

		stats.TotalRows++

		author := strings.TrimSpace(safeGet(row, cols.author))
		content := strings.TrimSpace(safeGet(row, cols.content))
		if author == "" || content == "" {
			stats.SkippedEmpty++
			continue
		}

		idea := models.CreateIdeaRequest{Author: author, Content: content}
		if title := strings.TrimSpace(safeGet(row, cols.title)); title != "" {
			idea.Title = &title
		}

		if raw := strings.TrimSpace(safeGet(row, cols.embedding)); raw != "" {
			vector, err := ingest.ParseEmbedding(raw)
			if err != nil {
				fmt.Fprintf(warn, "row %d: %v\n", rowNum, err)
				stats.Invalid++
				continue
			}

			idea.Embedding = narrow(vector)
		}

		ideas = append(ideas, idea)
	}

	return ideas, stats, nil
}

func resolveColumns(header []string) (csvColumns, error) {
	cols := csvColumns{author: -1, title: -1, content: -1, embedding: -1}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "author":
			cols.author = i
		case "title":
			cols.title = i
		case "content":
			cols.content = i
		case "embedding":
			cols.embedding = i
		}
	}

	if cols.author < 0 || cols.content < 0 {
		return cols, errors.New("CSV header must name author and content columns")
	}

	return cols, nil
}

func safeGet(row []string, index int) string {
	if index >= 0 && index < len(row) {
		return row[index]
	}

	return ""
}

func narrow(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}

	return out
}
