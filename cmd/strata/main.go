// Command strata is a small maintenance CLI for poking at a storage engine
// data directory: write buffers, read chunks back by hash and inspect the
// structured-record namespace. No collaborators are wired, so writes are
// unindexed and unattested.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	strata "github.com/meridianos/strata"
)

var dataDir string

func main() {
	root := &cobra.Command{
		Use:   "strata",
		Short: "Tiered Merkle-committed chunk storage engine",
	}
	root.PersistentFlags().StringVar(&dataDir, "data", "./strata-data", "data directory")

	root.AddCommand(writeCmd(), readChunkCmd(), searchCmd(), blockCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openEngine() (*strata.Engine, error) {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	engine, err := strata.New(strata.Config{Path: dataDir, Logger: log}, strata.Collaborators{})
	if err != nil {
		return nil, err
	}
	if err := engine.Start(context.Background()); err != nil {
		return nil, err
	}
	return engine, nil
}

func writeCmd() *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Commit and store a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			blob, err := engine.Write(context.Background(), data, label)
			if err != nil {
				return err
			}

			fmt.Printf("root: %x\n", blob.MerkleRoot)
			fmt.Printf("chunks: %d\n", blob.ChunkCount)
			for _, h := range blob.LeafHashes {
				fmt.Printf("  %x\n", h)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "cli", "write label (side-channel file name)")
	return cmd
}

func readChunkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-chunk <hex-hash>",
		Short: "Read one chunk by hash and print it to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("invalid hash: %w", err)
			}

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			data, ok, err := engine.ReadChunk(context.Background(), hash)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("chunk %s not found", args[0])
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Similarity search (requires an embedder; empty without one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			hits, err := engine.Search(context.Background(), args[0])
			if err != nil {
				return err
			}
			for _, hit := range hits {
				fmt.Println(hit)
			}
			return nil
		},
	}
}

func blockCmd() *cobra.Command {
	block := &cobra.Command{
		Use:   "block",
		Short: "Structured-record namespace access",
	}

	block.AddCommand(&cobra.Command{
		Use:   "put <key> <file>",
		Short: "Store a record under a string key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			return engine.PersistBlock(context.Background(), args[0], value)
		},
	})

	block.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print the record stored under a string key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			value, ok, err := engine.GetBlock(context.Background(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("block %q not found", args[0])
			}
			_, err = os.Stdout.Write(value)
			return err
		},
	})

	return block
}
