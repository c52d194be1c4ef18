package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Yusufzhafir/tradeview/internal/engine"
	"github.com/Yusufzhafir/tradeview/internal/feed"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/spf13/cobra"
)

var (
	depthFile   string
	depthLevels int
)

var depthCmd = &cobra.Command{
	Use:   "depth",
	Short: "Aggregate an order book snapshot file into depth points",
	Long: `Reads order book entries as a JSON array (or {"entries":[...]}) from
--file, or stdin when the file is "-", and prints the cumulative depth curve.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if depthFile != "-" {
			f, err := os.Open(depthFile)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		points, err := aggregateReader(in, depthLevels)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	},
}

func init() {
	depthCmd.Flags().StringVarP(&depthFile, "file", "f", "-", "snapshot file, - for stdin")
	depthCmd.Flags().IntVar(&depthLevels, "levels", 0, "price levels per side to keep, 0 keeps all")
}

func aggregateReader(r io.Reader, levels int) ([]model.DepthPoint, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw, err := feed.DecodeEntries(body)
	if err != nil {
		return nil, fmt.Errorf("decoding entries: %w", err)
	}
	entries := make([]model.OrderBookEntry, 0, len(raw))
	for i, re := range raw {
		entry, err := feed.ParseEntry(re)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return engine.AggregateLevels(entries, levels), nil
}
