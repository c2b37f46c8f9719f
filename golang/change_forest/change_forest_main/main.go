package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tarstars/change_forest/golang/change_forest/cfdata"
	"github.com/tarstars/change_forest/golang/change_forest/cfl"
)

//decodeControl reads a yaml or json file over the default control.
func decodeControl(srcConfig string) (*cfl.Control, error) {
	control := cfl.DefaultControl()
	if srcConfig == "" {
		return control, nil
	}
	file, err := os.Open(srcConfig)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(control); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode %s: %w", srcConfig, err)
	}
	return control, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

type detectOptions struct {
	data             string
	columns          []string
	method           string
	segmentationType string
	config           string
	seed             int64
	workers          int
	splitPoints      string
	tree             string
	graph            string
	graphFormat      string
}

func detect(cmd *cobra.Command, logger *zap.Logger, opts *detectOptions) error {
	control, err := decodeControl(opts.config)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		control.Seed = opts.seed
	}
	if cmd.Flags().Changed("workers") {
		control.Workers = opts.workers
	}
	control.Logger = logger

	X, err := cfdata.ReadMatrix(opts.data, opts.columns...)
	if err != nil {
		return err
	}
	rows, columns := X.Dims()
	logger.Info("data loaded", zap.String("file", opts.data), zap.Int("rows", rows), zap.Int("columns", columns))

	result, err := cfl.ChangeForestContext(cmd.Context(), X, opts.method, opts.segmentationType, control)
	if err != nil {
		return err
	}
	if err := result.Render(cmd.OutOrStdout()); err != nil {
		return err
	}

	if opts.splitPoints != "" {
		if err := writeSplitPoints(opts.splitPoints, result.SplitPoints()); err != nil {
			return err
		}
	}
	if opts.tree != "" {
		if err := result.Save(opts.tree); err != nil {
			return err
		}
	}
	if opts.graph != "" {
		if err := result.RenderGraph(opts.graph, opts.graphFormat); err != nil {
			return err
		}
	}
	return nil
}

func writeSplitPoints(fileName string, splitPoints []int) (err error) {
	dst, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dst.Close(); err == nil {
			err = closeErr
		}
	}()
	return cfdata.WriteSplitPoints(dst, splitPoints)
}

func newDetectCmd(logger **zap.Logger) *cobra.Command {
	opts := &detectOptions{}
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the change points of a csv or npy matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return detect(cmd, *logger, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.data, "data", "", "a csv or npy file with one observation per row")
	flags.StringSliceVar(&opts.columns, "columns", nil, "csv columns to use, all numeric columns by default")
	flags.StringVar(&opts.method, "method", "random_forest", "gain method: knn, change_in_mean or random_forest")
	flags.StringVar(&opts.segmentationType, "segmentation", "bs", "segmentation type: bs, wbs or sbs")
	flags.StringVar(&opts.config, "control", "", "a yaml or json file overriding the default control")
	flags.Int64Var(&opts.seed, "seed", 0, "seed of every random number generator")
	flags.IntVar(&opts.workers, "workers", 0, "number of goroutines, the number of cpus by default")
	flags.StringVar(&opts.splitPoints, "output", "", "write the split points to this npy file")
	flags.StringVar(&opts.tree, "json", "", "write the tree to this json file")
	flags.StringVar(&opts.graph, "graph", "", "draw the tree to this file")
	flags.StringVar(&opts.graphFormat, "graph-format", "svg", "format of the drawn tree: png, svg, jpg or dot")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newGraphCmd() *cobra.Command {
	var out, format string
	cmd := &cobra.Command{
		Use:   "graph tree.json",
		Short: "Draw a tree saved by detect --json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cfl.LoadResult(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return result.Render(cmd.OutOrStdout())
			}
			return result.RenderGraph(out, format)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "draw the tree to this file, print the table when empty")
	cmd.Flags().StringVar(&format, "format", "svg", "png, svg, jpg or dot")
	return cmd
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		memprofile string
		logger     *zap.Logger
	)
	root := &cobra.Command{
		Use:           "change_forest",
		Short:         "Multivariate change point detection with random forests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			logger, err = newLogger(verbose)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			_ = logger.Sync()
			if memprofile == "" {
				return nil
			}
			f, err := os.Create(memprofile)
			if err != nil {
				return err
			}
			defer f.Close()
			runtime.GC()
			return pprof.WriteHeapProfile(f)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every evaluated node")
	root.PersistentFlags().StringVar(&memprofile, "memprofile", "", "write memory profile to `file`")
	root.AddCommand(newDetectCmd(&logger), newGraphCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "change_forest:", err)
		os.Exit(1)
	}
}
