package main

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provgraph/pvm/pkg/engine"
	"github.com/provgraph/pvm/pkg/log"
	"github.com/provgraph/pvm/pkg/metrics"
	"github.com/provgraph/pvm/pkg/views"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// viewArg describes the CLI surface derived from one registered view type:
// a toggle flag named after the view and one value flag per parameter.
type viewArg struct {
	id     int
	name   string
	help   string
	params []viewParamArg
}

type viewParamArg struct {
	actName string
	name    string
	help    string
}

func viewArgFromType(id int, v views.View) viewArg {
	name := strings.ToLower(v.Name())
	name = strings.TrimSuffix(name, "view")
	arg := viewArg{id: id, name: name, help: v.Desc()}
	paramNames := make([]string, 0, len(v.Params()))
	for p := range v.Params() {
		paramNames = append(paramNames, p)
	}
	sort.Strings(paramNames)
	for _, p := range paramNames {
		arg.params = append(arg.params, viewParamArg{
			actName: p,
			name:    fmt.Sprintf("%s-%s", name, strings.ToLower(p)),
			help:    v.Params()[p],
		})
	}
	return arg
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "pvm <path>",
		Short: "PVM - provenance graph engine for CADETS audit traces",
		Long: `PVM ingests a stream of operating-system audit records and materialises
a versioned provenance graph, streaming every mutation to the views
selected on the command line.

Pass '-' as the path to read from stdin.`,
		Version: Version,
		Args:    cobra.ExactArgs(1),
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"PVM version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Output logs in JSON format")
	flags.String("config", "", "Engine configuration file (YAML)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	// The view flag surface depends on the registered view types, so the
	// pipeline comes up before argument parsing.
	cfgPath, logLevel, logJSON, metricsAddr := peekGlobalFlags(os.Args[1:])
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

	cfg := engine.DefaultConfig()
	if cfgPath != "" {
		var err error
		if cfg, err = engine.LoadConfig(cfgPath); err != nil {
			return err
		}
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	e, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.InitPipeline(); err != nil {
		return err
	}

	viewTypes, err := e.ListViewTypes()
	if err != nil {
		return err
	}
	args := make([]viewArg, 0, len(viewTypes))
	for _, v := range viewTypes {
		id, err := e.ViewTypeID(v.Name())
		if err != nil {
			return err
		}
		arg := viewArgFromType(id, v)
		rootCmd.Flags().Bool(arg.name, false, arg.help)
		for _, p := range arg.params {
			rootCmd.Flags().String(p.name, "", p.help)
		}
		args = append(args, arg)
	}

	rootCmd.RunE = func(cmd *cobra.Command, posArgs []string) error {
		if cfg.MetricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
					log.WithComponent("metrics").Error().Err(err).Msg("metrics server failed")
				}
			}()
		}

		for _, arg := range args {
			enabled, _ := cmd.Flags().GetBool(arg.name)
			if !enabled {
				continue
			}
			params := views.Params{}
			for _, p := range arg.params {
				if val, _ := cmd.Flags().GetString(p.name); val != "" {
					params[p.actName] = val
				}
			}
			if _, err := e.CreateViewByID(arg.id, params); err != nil {
				return err
			}
		}

		src := os.Stdin
		if path := posArgs[0]; path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		}

		if err := e.IngestReader(src); err != nil {
			return err
		}
		return e.ShutdownPipeline()
	}

	return rootCmd.Execute()
}

// peekGlobalFlags extracts the flags needed before cobra parsing, since the
// pipeline (and thus the dynamic flag set) must exist first.
func peekGlobalFlags(argv []string) (cfgPath, logLevel string, logJSON bool, metricsAddr string) {
	logLevel = "info"
	get := func(i int, name string) (string, bool) {
		arg := argv[i]
		if val, ok := strings.CutPrefix(arg, "--"+name+"="); ok {
			return val, true
		}
		if arg == "--"+name && i+1 < len(argv) {
			return argv[i+1], true
		}
		return "", false
	}
	for i := range argv {
		if v, ok := get(i, "config"); ok {
			cfgPath = v
		}
		if v, ok := get(i, "log-level"); ok {
			logLevel = v
		}
		if v, ok := get(i, "metrics-addr"); ok {
			metricsAddr = v
		}
		if argv[i] == "--log-json" {
			logJSON = true
		}
	}
	return
}
