package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rabbithole/pkg/types"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect persisted rabbit hole snapshots",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <snapshot-file>",
	Short: "Validate a snapshot file and summarize its contents",
	Long: `Show parses a persisted snapshot, rejecting corrupt or foreign objects,
and prints the graph's shape: node and edge counts by type, clusters, and
the highest-relevance nodes.`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshotShow,
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	snap, err := types.ParseSnapshot(data)
	if err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("Snapshot v%d", snap.Version)
	if !snap.UpdatedAt.IsZero() {
		fmt.Printf(" (updated %s)", snap.UpdatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Println()
	if snap.Query != "" {
		fmt.Printf("Query: %s\n", snap.Query)
	}

	archived := 0
	byState := map[types.NodeState]int{}
	for i := range snap.Nodes {
		byState[snap.Nodes[i].State]++
		if !snap.Nodes[i].Active() {
			archived++
		}
	}
	fmt.Printf("Nodes: %d (%d archived)\n", len(snap.Nodes), archived)
	for _, state := range []types.NodeState{
		types.StateDiscovered, types.StateEnriched,
		types.StateMaterialized, types.StateArchived,
	} {
		if byState[state] > 0 {
			fmt.Printf("  %-13s %d\n", state, byState[state])
		}
	}

	byType := map[types.EdgeType]int{}
	for _, e := range snap.Edges {
		byType[e.Type]++
	}
	edgeTypes := make([]string, 0, len(byType))
	for edgeType := range byType {
		edgeTypes = append(edgeTypes, string(edgeType))
	}
	sort.Strings(edgeTypes)
	fmt.Printf("Edges: %d\n", len(snap.Edges))
	for _, edgeType := range edgeTypes {
		fmt.Printf("  %-25s %d\n", edgeType, byType[types.EdgeType(edgeType)])
	}

	fmt.Printf("Clusters: %d\n", len(snap.Clusters))
	for _, c := range snap.Clusters {
		fmt.Printf("  %-12s %-40s %d members\n", c.ID, c.Label, len(c.Members))
	}
	fmt.Printf("Annotations: %d\n", len(snap.AnnotationNodes))
	return nil
}

func init() {
	snapshotShowCmd.Flags().Bool("json", false, "print the parsed snapshot as JSON")

	snapshotCmd.AddCommand(snapshotShowCmd)
	rootCmd.AddCommand(snapshotCmd)
}
