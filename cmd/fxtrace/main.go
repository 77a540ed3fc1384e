// Package main provides the fxtrace CLI: it traces a few built-in programs
// and prints the resulting graphs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/config"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/proxy"
)

const version = "v0.1.0-dev"

func main() {
	ctx := context.Background()
	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		configPath  = flag.String("config", "", "path to a YAML config file")
		modeName    = flag.String("mode", "", "tracing mode: real, fake or symbolic (overrides the config)")
		decompose   = flag.String("decompose", "", "comma separated operators to decompose, e.g. addmm,div")
		metricsAddr = flag.String("metrics-addr", "", "serve prometheus metrics on this address and keep running")
		replay      = flag.Bool("replay", true, "replay the traced graph on the example inputs")
	)
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 1 && args[0] == "version" {
		fmt.Printf("fxtrace %s\n", version)
		return nil
	}
	if len(args) != 1 {
		usage()
		return errors.New("expected exactly one program name")
	}
	prog, ok := programs[args[0]]
	if !ok {
		return fmt.Errorf("unknown program %q (known: %s)", args[0], strings.Join(programNames(), ", "))
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *modeName != "" {
		m, err := config.ParseMode(*modeName)
		if err != nil {
			return err
		}
		cfg.Mode = m
	}
	if *decompose != "" {
		cfg.Decompositions = strings.Split(*decompose, ",")
	}
	if cfg.Verbosity > 0 {
		if err := flag.Set("v", fmt.Sprint(cfg.Verbosity)); err != nil {
			return err
		}
	}

	log := klog.FromContext(ctx)

	inputs, err := prog.inputs()
	if err != nil {
		return fmt.Errorf("building inputs for %s: %w", args[0], err)
	}

	opts := []proxy.Option{proxy.WithConfig(cfg), proxy.WithName(args[0])}
	if prog.root != nil {
		opts = append(opts, proxy.WithRoot(prog.root))
	}

	res, err := proxy.Trace(dispatch.New(ctx), prog.fn, inputs, opts...)
	if err != nil {
		return fmt.Errorf("tracing %s: %w", args[0], err)
	}
	log.Info("traced program", "program", args[0], "mode", cfg.Mode, "nodes", res.Graph().Len())

	fmt.Print(res.Module)
	if res.ShapeEnv != nil {
		fmt.Println(res.ShapeEnv)
	}
	if names := res.Module.AttrNames(); len(names) > 0 {
		fmt.Printf("attributes: %s\n", strings.Join(names, ", "))
	}

	if *replay {
		out, err := res.Module.Run(dispatch.New(ctx), inputs...)
		if err != nil {
			return fmt.Errorf("replaying %s: %w", args[0], err)
		}
		fmt.Printf("replay: %v\n", out)
	}

	if *metricsAddr != "" {
		return serveMetrics(ctx, *metricsAddr)
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string) error {
	log := klog.FromContext(ctx)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics on %q: %w", addr, err)
	}
	return nil
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: fxtrace [flags] <program>\n\n")
	fmt.Fprintf(out, "Programs:\n")
	for _, name := range programNames() {
		fmt.Fprintf(out, "  %-12s %s\n", name, programs[name].help)
	}
	fmt.Fprintf(out, "\nOperators with core decompositions: %s\n\n", strings.Join(decomposable(), ", "))
	fmt.Fprintf(out, "Flags:\n")
	flag.PrintDefaults()
}

func programNames() []string {
	names := make([]string, 0, len(programs))
	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decomposable() []string {
	var names []string
	for op := range catalog.CoreDecompositions() {
		names = append(names, op.Name)
	}
	sort.Strings(names)
	return names
}
