package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/falconandy/spacetravelling/prismic"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "spacetravelling",
		Short:         "The spacetravelling blog",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the blog over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfgFile, map[string]string{keyPort: "port"}, func(ctx context.Context, a *app) error {
				return NewServer(a.cfg, a.source, a.renderer, a.logger).Start(ctx)
			})
		},
	}
	serve.Flags().Int("port", 9001, "tcp port to listen")

	build := &cobra.Command{
		Use:   "build",
		Short: "Generate the blog as static files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfgFile, map[string]string{keyOutputDir: "out"}, func(ctx context.Context, a *app) error {
				return NewBuilder(a.cfg, a.source, a.renderer, a.logger).Build(ctx)
			})
		},
	}
	build.Flags().String("out", "public", "output directory")

	root.AddCommand(serve, build, &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("spacetravelling " + version)
		},
	})
	return root
}

type app struct {
	cfg      Config
	logger   *zap.Logger
	source   ContentSource
	renderer *Renderer
}

// run loads the configuration, binds the command flags over it and runs fn
// with the wired components.
func run(cmd *cobra.Command, cfgFile string, flags map[string]string, fn func(context.Context, *app) error) error {
	v, err := newViper(cfgFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd, flags); err != nil {
		return err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := prismic.NewClient(cfg.prismic())
	if err != nil {
		return err
	}
	renderer, err := NewRenderer(cfg.location())
	if err != nil {
		return err
	}

	err = fn(cmd.Context(), &app{
		cfg:      cfg,
		logger:   logger,
		source:   instrument(client),
		renderer: renderer,
	})
	if err != nil {
		logger.Error("command failed", zap.String("command", cmd.Name()), zap.Error(err))
	}
	return err
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, flags map[string]string) error {
	for key, name := range flags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}
