package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/composer/internal/compositions"
	"github.com/GriffinCanCode/composer/internal/infrastructure/config"
	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/composer/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/composer/internal/props"
	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

// resolveFlags are shared by every resolving command
type resolveFlags struct {
	props     string
	envFile   string
	env       []string
	timeoutMS float64
	logLevel  string
	indent    bool
	port      int
	trace     bool
}

func newRootCommand(cfg *config.Config, out io.Writer) *cobra.Command {
	flags := &resolveFlags{}

	root := &cobra.Command{
		Use:           "composer",
		Short:         "Resolve composition metadata from a bundle",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.props, "props", "", "Input props as inline JSON or a .json, .yaml or .toml file")
	pf.StringVar(&flags.envFile, "env-file", "", "Dotenv file with extra env variables")
	pf.StringArrayVar(&flags.env, "env", nil, "Env variable as KEY=VALUE (repeatable)")
	pf.Float64Var(&flags.timeoutMS, "timeout", float64(cfg.Resolve.TimeoutMS), "Per-step timeout in milliseconds")
	pf.StringVar(&flags.logLevel, "log", "info", "Log level (verbose, info, warn, error)")
	pf.BoolVar(&flags.indent, "indent", false, "Indent log lines that originate in the sandbox")
	pf.IntVar(&flags.port, "port", cfg.Resolve.Port, "Content server port, 0 picks a free one")
	pf.BoolVar(&flags.trace, "trace", false, "Log a span per resolution step")

	root.AddCommand(
		newSelectCommand(cfg, flags, out),
		newListCommand(cfg, flags, out),
	)
	return root
}

func newSelectCommand(cfg *config.Config, flags *resolveFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "select <serve-url|bundle-dir> <composition-id>",
		Short: "Resolve the metadata of one composition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[1])
			if id == "" {
				return fmt.Errorf("composition id is required")
			}

			env, err := newEnvironment(cfg, flags)
			if err != nil {
				return err
			}
			defer env.close()

			req, err := env.request(args[0])
			if err != nil {
				return err
			}
			req.ID = id

			meta, err := env.resolver.SelectComposition(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(out, meta.Raw)
		},
	}
}

func newListCommand(cfg *config.Config, flags *resolveFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list <serve-url|bundle-dir>",
		Short: "Resolve the metadata of every composition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cfg, flags)
			if err != nil {
				return err
			}
			defer env.close()

			req, err := env.request(args[0])
			if err != nil {
				return err
			}

			list, err := env.resolver.ListCompositions(cmd.Context(), req)
			if err != nil {
				return err
			}
			raw := make([]map[string]interface{}, len(list))
			for i, m := range list {
				raw[i] = m.Raw
			}
			return writeJSON(out, raw)
		},
	}
}

// environment is everything one command invocation resolves with
type environment struct {
	flags    *resolveFlags
	log      logging.LogOptions
	logger   *logging.Logger
	tracer   *tracing.Tracer
	resolver *compositions.Resolver
}

func newEnvironment(cfg *config.Config, flags *resolveFlags) (*environment, error) {
	level, err := logging.ParseLevel(flags.logLevel)
	if err != nil {
		return nil, err
	}
	log := logging.LogOptions{Level: level, Indent: flags.indent}

	logger, err := logging.New(logging.Config{
		Level:       string(level),
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics := monitoring.NewMetrics()
	resolver := compositions.NewResolver(
		compositions.DefaultDependencies(cfg, logger, metrics),
		compositions.OptionsFromConfig(cfg),
		logger,
	).WithMetrics(metrics)

	env := &environment{flags: flags, log: log, logger: logger, resolver: resolver}
	if flags.trace {
		env.tracer = tracing.New("composer", logger)
		resolver.WithTracer(env.tracer)
	}
	return env, nil
}

// request builds a resolution request for target from the shared flags
func (e *environment) request(target string) (compositions.ResolutionRequest, error) {
	timeout, err := compositions.TimeoutMillis(e.flags.timeoutMS)
	if err != nil {
		return compositions.ResolutionRequest{}, err
	}

	inputProps, err := props.Load(e.flags.props)
	if err != nil {
		return compositions.ResolutionRequest{}, err
	}

	envVars, err := props.LoadEnv(e.flags.envFile)
	if err != nil {
		return compositions.ResolutionRequest{}, err
	}
	pairs, err := props.ParsePairs(e.flags.env)
	if err != nil {
		return compositions.ResolutionRequest{}, err
	}
	for k, v := range pairs {
		envVars[k] = v
	}

	req := compositions.ResolutionRequest{
		InputProps:   inputProps,
		EnvVariables: envVars,
		Timeout:      &timeout,
		Port:         e.flags.port,
		Log:          e.log,
	}
	if isServeURL(target) {
		req.ServeURL = target
	} else {
		req.BundleDir = target
	}
	return req, nil
}

func (e *environment) close() {
	if e.tracer != nil {
		e.tracer.Close()
	}
	_ = e.logger.Sync()
}

// isServeURL tells an http(s) serve URL apart from a bundle directory
func isServeURL(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
