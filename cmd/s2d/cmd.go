package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/spacetodepth/backend/cpu"
	"github.com/born-ml/spacetodepth/backend/webgpu"
	"github.com/born-ml/spacetodepth/internal/layers"
	"github.com/born-ml/spacetodepth/nn"
	"github.com/born-ml/spacetodepth/tensor"
)

// options are the flags shared by every command.
type options struct {
	verbose       bool
	device        string
	maxTextureDim int
	lowPower      bool
}

// NewCLI creates the root command with all subcommands.
func NewCLI() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "s2d",
		Short:         "Space-to-depth layout layers on texture accelerators",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log layer activity at debug level")
	rootCmd.PersistentFlags().StringVar(&opts.device, "device", "cpu", "Accelerator: cpu, webgpu or auto")
	rootCmd.PersistentFlags().IntVar(&opts.maxTextureDim, "max-texture-dim", cpu.DefaultMaxTextureDim, "Texture side limit of the device")
	rootCmd.PersistentFlags().BoolVar(&opts.lowPower, "low-power", false, "Prefer a low-power GPU adapter")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newIndexMapCmd(),
		newBenchCmd(opts),
		newDevicesCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// openDevice returns the accelerator selected by --device and a release func.
func openDevice(opts *options) (tensor.Accelerator, func(), error) {
	hostDevice := func() (tensor.Accelerator, func(), error) {
		cfg := cpu.DefaultConfig()
		cfg.MaxTextureDim = opts.maxTextureDim
		return cpu.NewWithConfig(cfg), func() {}, nil
	}

	switch opts.device {
	case "cpu":
		return hostDevice()
	case "webgpu", "auto":
		cfg := webgpu.DefaultConfig()
		cfg.MaxTextureDim = opts.maxTextureDim
		cfg.LowPower = opts.lowPower
		gpu, err := webgpu.NewWithConfig(cfg)
		if err == nil {
			return gpu, gpu.Release, nil
		}
		if opts.device == "webgpu" {
			return nil, nil, err
		}
		slog.Debug("webgpu unavailable, using cpu", "error", err)
		return hostDevice()
	default:
		return nil, nil, fmt.Errorf("unknown device %q", opts.device)
	}
}

// parseShape parses "H,W,C" (or any comma separated dimensions).
func parseShape(s string) (tensor.Shape, error) {
	var shape tensor.Shape
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", s, err)
		}
		shape = append(shape, n)
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("shape %q: %w", s, err)
	}
	return shape, nil
}

// layerNode builds the registry node for the layer flags.
func layerNode(class string, blockSize int, mode, attrs string) (*layers.Node, error) {
	node := &layers.Node{Name: "cli", Class: class}
	if attrs != "" {
		parsed, err := layers.ParseAttributes(attrs)
		if err != nil {
			return nil, err
		}
		node.Attributes = parsed
	} else {
		node.Attributes = []layers.Attribute{
			layers.IntAttr("block_size", int64(blockSize)),
			layers.StringAttr("mode", mode),
		}
	}
	return node, nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

// formatValues renders up to limit values.
func formatValues(values []float32, limit int) string {
	parts := make([]string, 0, min(len(values), limit)+1)
	for i, v := range values {
		if i == limit {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	return strings.Join(parts, " ")
}

func newRunCmd(opts *options) *cobra.Command {
	var (
		shapeFlag string
		blockSize int
		mode      string
		attrs     string
		inverse   bool
		host      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a layer on an arange input and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shape, err := parseShape(shapeFlag)
			if err != nil {
				return err
			}
			class := "SpaceToDepth"
			if inverse {
				class = "DepthToSpace"
			}
			node, err := layerNode(class, blockSize, mode, attrs)
			if err != nil {
				return err
			}

			ctx := &layers.Context{HostFallback: host}
			if !host {
				acc, release, err := openDevice(opts)
				if err != nil {
					return err
				}
				defer release()
				ctx.Accelerator = acc
			}

			layer, err := layers.NewRegistry().Build(ctx, node)
			if err != nil {
				return err
			}
			defer layer.Release()

			x, err := tensor.Arange(shape)
			if err != nil {
				return err
			}
			defer x.Release()

			var y *tensor.RawTensor
			if host {
				y, err = layer.CallHost(x)
			} else {
				y, err = layer.Call(x)
			}
			if err != nil {
				return err
			}
			defer y.Release()

			return printTensor(cmd.OutOrStdout(), y)
		},
	}

	cmd.Flags().StringVar(&shapeFlag, "shape", "4,4,1", "Input shape H,W,C")
	cmd.Flags().IntVarP(&blockSize, "block-size", "b", 2, "Block size")
	cmd.Flags().StringVar(&mode, "mode", "CRD", "Channel order: CRD or DCR")
	cmd.Flags().StringVar(&attrs, "attrs", "", "Layer attributes as key=value pairs, overriding --block-size and --mode")
	cmd.Flags().BoolVar(&inverse, "inverse", false, "Run depth-to-space instead")
	cmd.Flags().BoolVar(&host, "host", false, "Run on the host instead of an accelerator")
	return cmd
}

// printTensor prints one row per spatial location of an (H, W, C) tensor.
func printTensor(w io.Writer, y *tensor.RawTensor) error {
	values, err := tensor.ToSlice[float32](y)
	if err != nil {
		return err
	}
	shape := y.Shape()
	fmt.Fprintf(w, "shape %v\n", shape)

	channels := shape[len(shape)-1]
	cols := 1
	if len(shape) >= 2 {
		cols = shape[len(shape)-2]
	}
	table := newTable(w, []string{"ROW", "COL", "CHANNELS"})
	for i := 0; i*channels < len(values); i++ {
		row, col := i/cols, i%cols
		table.Append([]string{strconv.Itoa(row), strconv.Itoa(col), formatValues(values[i*channels:(i+1)*channels], 16)})
	}
	table.Render()
	return nil
}

func newIndexMapCmd() *cobra.Command {
	var (
		shapeFlag string
		blockSize int
		mode      string
	)

	cmd := &cobra.Command{
		Use:   "indexmap",
		Short: "Print the space-to-depth index map for a shape",
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
			g, err := nn.NewBlockGeometry(shape, blockSize)
			if err != nil {
				return err
			}
			im, err := nn.BuildSpaceToDepthMap(g, m)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "input %v -> output %v, block row surface %d, permutation %t\n",
				g.InputShape(), g.OutputShape(), g.BlockRowSurface, im.IsPermutation())

			channels := g.BlockChannels()
			table := newTable(w, []string{"BLOCK ROW", "BLOCK COL", "SOURCE OFFSETS"})
			for j := 0; j < g.BlockHeight; j++ {
				for k := 0; k < g.BlockWidth; k++ {
					start := (j*g.BlockWidth + k) * channels
					offsets := make([]string, channels)
					for c, off := range im.Offsets[start : start+channels] {
						offsets[c] = strconv.Itoa(int(off))
					}
					table.Append([]string{strconv.Itoa(j), strconv.Itoa(k), strings.Join(offsets, " ")})
				}
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&shapeFlag, "shape", "4,4,1", "Input shape H,W,C")
	cmd.Flags().IntVarP(&blockSize, "block-size", "b", 2, "Block size")
	cmd.Flags().StringVar(&mode, "mode", "CRD", "Channel order: CRD or DCR")
	return cmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available accelerators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := newTable(cmd.OutOrStdout(), []string{"DEVICE", "STATUS", "DETAILS"})

			host := cpu.New()
			table.Append([]string{"cpu", "available", fmt.Sprintf("%s, max texture %d", host.Name(), host.MaxTextureDim())})

			adapters, err := webgpu.ListAdapters()
			switch {
			case errors.Is(err, webgpu.ErrUnavailable):
				table.Append([]string{"webgpu", "unavailable", err.Error()})
			case err != nil:
				return err
			default:
				for _, a := range adapters {
					table.Append([]string{"webgpu", "available", a})
				}
			}
			table.Render()
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "s2d %s\n", version)
		},
	}
}
