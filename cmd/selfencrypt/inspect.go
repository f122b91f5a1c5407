package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kenchrcum/selfencrypt/internal/selfenc"
)

// chunkView is the YAML-friendly projection of a selfenc.ChunkDetails; the
// engine's own type keeps hashes as fixed-size byte arrays, which yaml.v3
// would otherwise render as sequences of integers instead of readable hex.
type chunkView struct {
	Index      uint32 `yaml:"index"`
	PreHash    string `yaml:"pre_hash"`
	Hash       string `yaml:"hash"`
	SourceSize uint64 `yaml:"source_size"`
}

type dataMapView struct {
	Kind       string      `yaml:"kind"`
	Length     uint64      `yaml:"length"`
	ChunkCount int         `yaml:"chunk_count,omitempty"`
	Chunks     []chunkView `yaml:"chunks,omitempty"`
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <data-map-file>",
		Short: "Print a data map's chunk layout as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			dataMap, err := selfenc.UnmarshalDataMap(raw)
			if err != nil {
				return fmt.Errorf("parse data map: %w", err)
			}

			view := dataMapView{Length: dataMap.Len()}
			switch {
			case dataMap.IsNone():
				view.Kind = "none"
			case dataMap.IsContent():
				view.Kind = "content"
			case dataMap.IsChunks():
				view.Kind = "chunks"
				chunks, _ := dataMap.Chunks()
				view.ChunkCount = len(chunks)
				view.Chunks = make([]chunkView, len(chunks))
				for i, c := range chunks {
					view.Chunks[i] = chunkView{
						Index:      c.ChunkIndex,
						PreHash:    hex.EncodeToString(c.PreHash[:]),
						Hash:       hex.EncodeToString(c.Hash[:]),
						SourceSize: c.SourceSize,
					}
				}
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(view)
		},
	}
}
