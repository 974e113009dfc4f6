package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/spacetodepth/nn"
	"github.com/born-ml/spacetodepth/tensor"
)

// benchResult is the timing of one layer instance.
type benchResult struct {
	layer string
	calls int
	total time.Duration
	first time.Duration // Includes the index map build and texture setup.
}

// runBench calls `instances` independent layers `iterations` times each,
// concurrently, on acc.
func runBench(cmd *cobra.Command, acc tensor.Accelerator, shape tensor.Shape, cfg nn.Config, instances, iterations int) ([]benchResult, error) {
	results := make([]benchResult, instances)
	g, ctx := errgroup.WithContext(cmd.Context())

	for i := range instances {
		g.Go(func() error {
			c := cfg
			c.Name = fmt.Sprintf("bench_%d", i)
			layer, err := nn.NewSpaceToDepth(c, acc)
			if err != nil {
				return err
			}
			defer layer.Release()

			r := benchResult{layer: layer.Name()}
			for range iterations {
				if err := ctx.Err(); err != nil {
					return err
				}
				x, err := tensor.Arange(shape)
				if err != nil {
					return err
				}
				start := time.Now()
				y, err := layer.Call(x)
				elapsed := time.Since(start)
				x.Release()
				if err != nil {
					return err
				}
				y.Release()

				if r.calls == 0 {
					r.first = elapsed
				}
				r.calls++
				r.total += elapsed
			}
			hits, misses := layer.CacheStats()
			slog.Debug("bench layer done", "layer", r.layer, "hits", hits, "misses", misses)
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newBenchCmd(opts *options) *cobra.Command {
	var (
		shapeFlag  string
		blockSize  int
		mode       string
		instances  int
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time space-to-depth calls on independent layers in parallel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shape, err := parseShape(shapeFlag)
			if err != nil {
				return err
			}
			m, err := nn.ParseMode(mode)
			if err != nil {
				return err
			}
			if instances <= 0 || iterations <= 0 {
				return fmt.Errorf("layers and iterations must be positive")
			}

			acc, release, err := openDevice(opts)
			if err != nil {
				return err
			}
			defer release()

			cfg := nn.Config{BlockSize: blockSize, Mode: m}
			results, err := runBench(cmd, acc, shape, cfg, instances, iterations)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "device %s, input %v, block size %d\n", acc.Name(), shape, blockSize)
			table := newTable(w, []string{"LAYER", "CALLS", "FIRST", "AVG", "TOTAL"})
			for _, r := range results {
				table.Append([]string{
					r.layer,
					strconv.Itoa(r.calls),
					r.first.String(),
					(r.total / time.Duration(r.calls)).String(),
					r.total.String(),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&shapeFlag, "shape", "64,64,8", "Input shape H,W,C")
	cmd.Flags().IntVarP(&blockSize, "block-size", "b", 2, "Block size")
	cmd.Flags().StringVar(&mode, "mode", "CRD", "Channel order: CRD or DCR")
	cmd.Flags().IntVar(&instances, "layers", 4, "Independent layer instances run concurrently")
	cmd.Flags().IntVar(&iterations, "iterations", 10, "Calls per layer")
	return cmd
}
