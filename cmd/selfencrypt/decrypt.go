package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenchrcum/selfencrypt/internal/audit"
	"github.com/kenchrcum/selfencrypt/internal/metrics"
	"github.com/kenchrcum/selfencrypt/internal/selfenc"
	"github.com/kenchrcum/selfencrypt/internal/storage"
	"github.com/kenchrcum/selfencrypt/internal/tracing"
)

func newDecryptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt <data-map-file> <output-file>",
		Short: "Reconstruct a file from its data map",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stopTracing := startTracing(cmd.Context(), "selfencrypt-decrypt")
			defer stopTracing()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			m := metrics.NewMetricsWithConfig(metrics.Config{EnableBackendLabel: true})
			store, err := storage.Open(cmd.Context(), cfg, m)
			if err != nil {
				return err
			}

			auditor, err := audit.NewLoggerFromConfig(cfg.Audit)
			if err != nil {
				return fmt.Errorf("audit: %w", err)
			}
			defer auditor.Close()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read data map %s: %w", args[0], err)
			}
			dataMap, err := selfenc.UnmarshalDataMap(raw)
			if err != nil {
				return fmt.Errorf("parse data map: %w", err)
			}

			tracer := tracing.Tracer("selfencrypt")
			ctx, span := tracer.Start(cmd.Context(), "decrypt")
			defer span.End()

			enc, serr := selfenc.NewRandomAccessEncryptor(store, dataMap)
			if serr != nil {
				return serr
			}

			plaintext, serr := enc.Read(ctx, 0, dataMap.Len())
			if serr != nil {
				auditor.LogDecrypt(args[0], 0, false, serr, 0, nil)
				return serr
			}
			chunkCount := 0
			if chunks, ok := dataMap.Chunks(); ok {
				chunkCount = len(chunks)
				for _, c := range chunks {
					m.RecordChunkOperation(ctx, "decode", 0, int64(c.SourceSize))
				}
			}
			auditor.LogDecrypt(args[0], chunkCount, true, nil, 0, nil)

			if err := os.WriteFile(args[1], plaintext, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(plaintext), args[1])
			return nil
		},
	}
	return cmd
}
