package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/born-ml/micro/internal/config"
	"github.com/born-ml/micro/internal/wine"
	"github.com/born-ml/micro/session"
)

// app carries state resolved by the root command's persistent flags.
type app struct {
	configPath string
	cfg        config.Config
	logger     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "micro",
		Short:         "Arena-backed inference for the wine MLP classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (.toml, .yaml, .yml or .json)")
	flags.String("model", "", "ONNX model file (defaults to the built-in wine model)")
	flags.Int("arena-size", config.DefaultArenaSize, "Arena capacity in bytes")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug|info|warn|error")
	flags.StringSlice("kernels", nil, "Kernel set (FullyConnected,ReLU,Softmax,Reshape)")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.resolve(cmd)
	}

	root.AddCommand(
		newVersionCmd(),
		newInfoCmd(a),
		newInferCmd(a),
		newExportCmd(),
		newServeCmd(a),
	)
	return root
}

// resolve loads the config file and applies explicitly set flags on top.
func (a *app) resolve(cmd *cobra.Command) error {
	var cfg config.Config
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.ModelPath, _ = flags.GetString("model")
	}
	if flags.Changed("arena-size") {
		cfg.ArenaSize, _ = flags.GetInt("arena-size")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("kernels") {
		cfg.Kernels, _ = flags.GetStringSlice("kernels")
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(cfg.Level()).
		With().Timestamp().
		Logger()
	return nil
}

// modelBytes returns the configured model, or the built-in one.
func (a *app) modelBytes() ([]byte, error) {
	if a.cfg.ModelPath == "" {
		return wine.Model(), nil
	}
	data, err := os.ReadFile(a.cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return data, nil
}

// newSession builds and initializes a session from the resolved config.
func (a *app) newSession(data []byte, observer session.Observer) (*session.Session, error) {
	kinds, err := a.cfg.KernelKinds()
	if err != nil {
		return nil, err
	}
	sess := session.New(data, session.Options{
		ArenaSize: a.cfg.ArenaSize,
		Kernels:   kinds,
		Logger:    &a.logger,
		Observer:  observer,
	})
	if err := sess.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize (status %d): %w", session.StatusCode(err), err)
	}
	return sess, nil
}
