package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rabbithole/internal/session"
	"github.com/pdiddy/rabbithole/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <snapshot-file>",
	Short: "Re-score a snapshot: centrality, communities, composite relevance",
	Long: `Analyze loads a snapshot, runs PageRank centrality and label-propagation
community detection over the active node set, recomputes the five-dimension
composite relevance, and prints the ranked result.

A weight profile file (YAML with influence, recency, semantic_similarity,
local_centrality, velocity keys) overrides the snapshot's stored weights.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sess, err := loadSession(args[0], "cli")
	if err != nil {
		return err
	}

	weightsFile, _ := cmd.Flags().GetString("weights-file")
	if weightsFile != "" {
		weights, err := loadWeightProfile(weightsFile)
		if err != nil {
			return err
		}
		sess.SetWeights(weights)
	}

	sess.Refresh()

	outFile, _ := cmd.Flags().GetString("out")
	if outFile != "" {
		data, err := sess.SaveSnapshot()
		if err != nil {
			return err
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Wrote re-scored snapshot to", outFile)
	}

	top, _ := cmd.Flags().GetInt("top")
	ranked := sess.Graph().ActiveNodes()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Scores.Relevance > ranked[j].Scores.Relevance
	})
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}

	clusters := sess.Graph().Clusters()
	fmt.Printf("%d active nodes, %d clusters\n\n", len(sess.Graph().ActiveNodes()), len(clusters))
	for _, c := range clusters {
		fmt.Printf("  %-12s %-40s %d members\n", c.ID, c.Label, len(c.Members))
	}
	fmt.Println()
	fmt.Printf("%-9s %-50s %-6s %s\n", "RELEVANCE", "TITLE", "YEAR", "CLUSTER")
	for _, n := range ranked {
		title := n.Paper.Title
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		fmt.Printf("%-9.3f %-50s %-6d %s\n", n.Scores.Relevance, title, n.Paper.Year, n.ClusterID)
	}
	return nil
}

// loadSession builds a detached session from a snapshot file. A corrupt
// snapshot yields an empty session rather than an error, matching the
// parser's empty-graph fallback.
func loadSession(path, rabbitHoleID string) (*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sess := session.New(rabbitHoleID, coreConfig(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	sess.LoadSnapshot(data)
	return sess, nil
}

func loadWeightProfile(path string) (types.WeightConfig, error) {
	weights := types.DefaultWeights()
	f, err := os.Open(path)
	if err != nil {
		return weights, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return weights, err
	}
	if err := yaml.Unmarshal(data, &weights); err != nil {
		return weights, fmt.Errorf("parsing weight profile: %w", err)
	}
	return weights, nil
}

func init() {
	analyzeCmd.Flags().String("weights-file", "", "YAML weight profile overriding the snapshot's weights")
	analyzeCmd.Flags().String("out", "", "write the re-scored snapshot to this file")
	analyzeCmd.Flags().Int("top", 20, "number of ranked nodes to print (0 for all)")
	analyzeCmd.Flags().Bool("json", false, "output ranked nodes as JSON")

	rootCmd.AddCommand(analyzeCmd)
}
