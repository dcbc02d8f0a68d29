package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	httpadapter "github.com/san-kum/bulletx/internal/adapters/http"
	"github.com/san-kum/bulletx/internal/config"
	"github.com/san-kum/bulletx/internal/integrators"
	"github.com/san-kum/bulletx/internal/model"
	"github.com/san-kum/bulletx/internal/scene"
	"github.com/san-kum/bulletx/internal/storage"
	"github.com/san-kum/bulletx/internal/telemetry"
	"github.com/san-kum/bulletx/internal/tui"
	"github.com/san-kum/bulletx/internal/viz"
)

var (
	configFile  string
	preset      string
	dataDir     string
	backend     string
	redisAddr   string
	logLevel    string
	logFormat   string
	theme       string
	steps       int
	recordEvery int
	dt          float64
	integrator  string
	strict      bool
	columns     []string
	width       int
	height      int
	format      string
	addr        string
	speed       int
	frame       time.Duration

	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "bulletx",
		Short:         "compose robots, sensors and scenes into one state/action tree",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := telemetry.NewLogger(logLevel, logFormat)
			if err != nil {
				return err
			}
			logger = l
			if theme != "" {
				viz.SetTheme(theme)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "scene config file (yaml)")
	rootCmd.PersistentFlags().StringVarP(&preset, "preset", "p", "", "built-in scene preset")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultStorageDir, "run directory for the file store")
	rootCmd.PersistentFlags().StringVar(&backend, "storage", "file", "run store: file, redis, none")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "redis address for the redis store")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "", fmt.Sprintf("color theme %v", viz.ThemeNames()))

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "print the component tree, its spaces and current states",
		Args:  cobra.NoArgs,
		RunE:  inspectScene,
	}

	runCmd := &cobra.Command{
		Use:   "run [config-or-preset...]",
		Short: "step scenes and record their states",
		Long:  "Step each named scene concurrently and save one run per scene. With no arguments the --config or --preset scene is run.",
		RunE:  runScene,
	}
	runCmd.Flags().IntVarP(&steps, "steps", "n", config.DefaultSteps, "number of steps")
	runCmd.Flags().IntVar(&recordEvery, "record-every", config.DefaultRecordEvery, "record every n-th step")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultTimeStep, "time step")
	runCmd.Flags().StringVarP(&integrator, "integrator", "i", "rk4", fmt.Sprintf("integrator %v", integrators.Names()))
	runCmd.Flags().BoolVar(&strict, "strict", false, "reject action paths that match nothing")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run-id]",
		Short: "plot recorded columns of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&columns, "column", nil, "columns or vector fields to plot (default: first column)")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 15, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "write a run to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, csv")

	deleteCmd := &cobra.Command{
		Use:   "delete [run-id]",
		Short: "delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scene presets and built-in models",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve a scene over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serveScene,
	}
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	serveCmd.Flags().BoolVar(&strict, "strict", false, "reject action paths that match nothing")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "step a scene in a live terminal monitor",
		Args:  cobra.NoArgs,
		RunE:  watchScene,
	}
	watchCmd.Flags().IntVarP(&steps, "steps", "n", 0, "stop after n steps (0: no limit)")
	watchCmd.Flags().IntVar(&speed, "speed", 1, "steps per frame")
	watchCmd.Flags().DurationVar(&frame, "frame", 50*time.Millisecond, "time between frames")

	rootCmd.AddCommand(inspectCmd, runCmd, listCmd, plotCmd, exportCmd, deleteCmd, presetsCmd, serveCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the --config file, else the --preset, then applies
// any flag the user set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case configFile != "":
		cfg, err = config.Load(configFile)
	case preset != "":
		cfg, err = presetConfig(preset)
	default:
		return nil, errors.New("no scene: pass --config or --preset")
	}
	if err != nil {
		return nil, err
	}
	return applyFlags(cmd, cfg)
}

// resolveConfig treats name as a config file if one exists, otherwise as a
// preset.
func resolveConfig(cmd *cobra.Command, name string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if _, statErr := os.Stat(name); statErr == nil {
		cfg, err = config.Load(name)
	} else {
		cfg, err = presetConfig(name)
	}
	if err != nil {
		return nil, err
	}
	return applyFlags(cmd, cfg)
}

func presetConfig(name string) (*config.Config, error) {
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("record-every") {
		cfg.RecordEvery = recordEvery
	}
	if flags.Changed("dt") {
		cfg.Transport.TimeStep = dt
	}
	if flags.Changed("integrator") {
		cfg.Transport.Integrator = integrator
	}
	if flags.Changed("strict") {
		cfg.StrictActions = strict
	}
	if flags.Changed("storage") {
		cfg.Storage.Backend = backend
	}
	if flags.Changed("data") {
		cfg.Storage.Dir = dataDir
	}
	if flags.Changed("redis") {
		cfg.Storage.RedisAddr = redisAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the run store named by the flags. It returns a nil Store
// for the "none" backend.
func openStore() (storage.Store, error) {
	return storage.Open(backend, dataDir, redisAddr)
}

func closeStore(st storage.Store) {
	if c, ok := st.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}
}

func inspectScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := scene.New(cfg, scene.WithLogger(logger))
	if err != nil {
		return err
	}

	tree, err := viz.Tree(cfg.Name, sc.Root())
	if err != nil {
		return err
	}
	fmt.Println(viz.Title.Render(cfg.Name))
	fmt.Println(tree)

	ss, err := sc.StateSpace()
	if err != nil {
		return err
	}
	as, err := sc.ActionSpace()
	if err != nil {
		return err
	}
	fmt.Println(viz.Subtle.Render("state space"))
	fmt.Println(viz.Spaces(ss))
	fmt.Println(viz.Subtle.Render("action space"))
	fmt.Println(viz.Spaces(as))

	summary, err := sc.Summary()
	if err != nil {
		return err
	}
	fmt.Println(viz.Separator(60))
	fmt.Print(summary)
	return nil
}

func runScene(cmd *cobra.Command, args []string) error {
	var cfgs []*config.Config
	if len(args) == 0 {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfgs = append(cfgs, cfg)
	}
	for _, name := range args {
		cfg, err := resolveConfig(cmd, name)
		if err != nil {
			return err
		}
		cfgs = append(cfgs, cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, cfg := range cfgs {
		fmt.Printf("running %s for %d steps...\n", cfg.Name, cfg.Steps)
	}
	start := time.Now()

	runs, err := scene.RecordAll(ctx, cfgs, scene.WithLogger(logger))
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start))

	for i, run := range runs {
		cfg := cfgs[i]
		fmt.Printf("\n%s\n", viz.Title.Render(cfg.Name))
		if n := len(run.Times); n > 0 {
			fmt.Printf("sim time: %.4fs\n", run.Times[n-1])
		}
		fmt.Printf("samples: %d x %d columns\n", len(run.Rows), len(run.Columns))
		if len(run.Meta.Unmatched) > 0 {
			fmt.Printf("unmatched action paths: %s\n", strings.Join(run.Meta.Unmatched, ", "))
		}
		if err := saveRun(ctx, cfg, run); err != nil {
			return err
		}
	}
	return nil
}

func saveRun(ctx context.Context, cfg *config.Config, run *storage.Run) error {
	st, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir, cfg.Storage.RedisAddr)
	if err != nil {
		return err
	}
	if st == nil {
		return nil
	}
	defer closeStore(st)

	id, err := st.Save(ctx, run)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", id)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("the none backend keeps no runs")
	}
	defer closeStore(st)

	runs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tSTEPS\tDT\tINTEG\tCOLUMNS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4fs\t%s\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.TimeStep,
			run.Integrator,
			len(run.Columns),
		)
	}
	return w.Flush()
}

func loadRun(ctx context.Context, id string) (*storage.Run, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errors.New("the none backend keeps no runs")
	}
	defer closeStore(st)
	return st.Load(ctx, id)
}

func plotRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	names := columns
	if len(names) == 0 {
		if len(run.Columns) == 0 {
			return fmt.Errorf("run %s has no columns", run.Meta.ID)
		}
		names = run.Columns[:1]
	}

	fmt.Printf("run: %s\n", run.Meta.ID)
	fmt.Printf("scene: %s\n", run.Meta.Scene)
	fmt.Printf("samples: %d\n\n", len(run.Rows))

	graph, err := viz.Plot(run, names, viz.PlotOptions{
		Width:   width,
		Height:  height,
		Caption: fmt.Sprintf("%s vs sample (every %d steps)", strings.Join(names, ", "), run.Meta.RecordEvery),
	})
	if err != nil {
		return err
	}
	fmt.Println(graph)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case "csv":
		w := csv.NewWriter(os.Stdout)
		if err := w.Write(append([]string{"time"}, run.Columns...)); err != nil {
			return err
		}
		for i, row := range run.Rows {
			rec := make([]string, 0, len(row)+1)
			rec = append(rec, strconv.FormatFloat(run.Times[i], 'g', -1, 64))
			for _, v := range row {
				rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	default:
		return fmt.Errorf("unknown format: %s (json, csv)", format)
	}
}

func deleteRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("the none backend keeps no runs")
	}
	defer closeStore(st)

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println(viz.Title.Render("presets"))
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Printf("  %-14s %s, %d children\n", name, cfg.Root.Kind, len(cfg.Root.Children))
	}
	fmt.Println(viz.Title.Render("models"))
	for _, name := range model.BuiltinNames() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func serveScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	sc, err := scene.New(cfg, scene.WithLogger(logger), scene.WithMetrics(metrics))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: addr,
		Handler: httpadapter.NewHandler(sc,
			httpadapter.WithMode(sc.Mode()),
			httpadapter.WithLogger(logger.With("component", "http")),
			httpadapter.WithMetrics(reg),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving scene", "name", cfg.Name, "addr", addr, "mode", sc.Mode())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func watchScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// The monitor owns the terminal; only errors reach stderr.
	quiet, err := telemetry.NewLogger("error", logFormat)
	if err != nil {
		return err
	}
	sc, err := scene.New(cfg, scene.WithLogger(quiet))
	if err != nil {
		return err
	}
	return tui.Run(sc, tui.Options{StepsPerTick: speed, Frame: frame, MaxSteps: steps})
}
