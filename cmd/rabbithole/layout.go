package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rabbithole/pkg/types"
)

var layoutCmd = &cobra.Command{
	Use:   "layout <snapshot-file>",
	Short: "Compute node positions for a snapshot",
	Long: `Layout runs one of the three placement modes over a snapshot and prints
the resulting nodeId -> {x, y} map as JSON.

Modes:
  full         force-directed relayout of every active node
  incremental  pin existing positions, place only the nodes named by --new
  ego          arrange the graph around the node named by --focus`,
	Args: cobra.ExactArgs(1),
	RunE: runLayout,
}

func runLayout(cmd *cobra.Command, args []string) error {
	sess, err := loadSession(args[0], "cli")
	if err != nil {
		return err
	}

	mode, _ := cmd.Flags().GetString("mode")
	var positions map[string]types.Position

	switch mode {
	case "full":
		positions = sess.LayoutFull()
	case "incremental":
		newList, _ := cmd.Flags().GetString("new")
		if newList == "" {
			return fmt.Errorf("incremental mode requires --new with comma-separated node ids")
		}
		positions = sess.LayoutIncremental(strings.Split(newList, ","))
	case "ego":
		focus, _ := cmd.Flags().GetString("focus")
		if focus == "" {
			return fmt.Errorf("ego mode requires --focus")
		}
		if _, ok := sess.Graph().Node(focus); !ok {
			return fmt.Errorf("unknown focus node %q", focus)
		}
		positions = sess.LayoutEgo(focus)
	default:
		return fmt.Errorf("unknown mode %q (want full, incremental, or ego)", mode)
	}

	outFile, _ := cmd.Flags().GetString("out")
	if outFile != "" {
		data, err := sess.SaveSnapshot()
		if err != nil {
			return err
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Wrote positioned snapshot to", outFile)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(positions)
}

func init() {
	layoutCmd.Flags().String("mode", "full", "layout mode: full, incremental, or ego")
	layoutCmd.Flags().String("focus", "", "focus node id for ego mode")
	layoutCmd.Flags().String("new", "", "comma-separated new node ids for incremental mode")
	layoutCmd.Flags().String("out", "", "write the positioned snapshot to this file")

	rootCmd.AddCommand(layoutCmd)
}
