package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jjshanks/http-server/internal/config"
	"github.com/jjshanks/http-server/internal/server"
)

// cli holds the state shared by the commands: the viper instance flags are
// bound to and the options loaded once before any command runs.
type cli struct {
	v       *viper.Viper
	cfgFile string
	opts    *config.Options
}

// preRun loads, validates and applies the process options.
func (c *cli) preRun(cmd *cobra.Command, args []string) error {
	opts, err := config.LoadOptions(c.v)
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	opts.InitializeLogging()
	c.opts = opts
	return nil
}

// run loads the configuration file and serves until interrupted.
func (c *cli) run(cmd *cobra.Command, args []string) error {
	file, err := config.FromFile(c.cfgFile)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(file, c.opts)
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}

// newRootCmd builds the command tree. Flags are bound to v so that
// HTTP_SERVER_* environment variables act as fallbacks.
func newRootCmd(v *viper.Viper) *cobra.Command {
	return (&cli{v: v}).command()
}

func (c *cli) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "http-server",
		Short:             "HTTP/S server configured from a TOML file",
		Long:              `A static file server that reads its address, TLS and CORS settings from a TOML configuration file`,
		PersistentPreRunE: c.preRun,
		RunE:              c.run,
	}

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", config.DefaultConfigPath, "TOML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Bool("console", false, "Use console log format instead of JSON")

	rootCmd.Flags().Duration("graceful-timeout", config.NewOptions().GracefulTimeout, "Time to wait for in-flight requests on shutdown")
	rootCmd.Flags().String("tracing-endpoint", "", "OTLP/gRPC endpoint for traces, tracing is disabled when empty")
	rootCmd.Flags().Bool("tracing-insecure", false, "Disable TLS for the tracing endpoint")

	if err := c.v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind persistent flags")
	}
	if err := c.v.BindPFlags(rootCmd.Flags()); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind flags")
	}

	rootCmd.AddCommand(newValidateCmd(&c.cfgFile))
	return rootCmd
}

// newValidateCmd loads the configuration file, converts its [cors] table
// and reports what the server would run with.
func newValidateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file without starting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := config.FromFile(*cfgFile)
			if err != nil {
				return err
			}

			corsCfg, err := file.CorsConfig()
			if err != nil {
				return err
			}

			event := log.Info().
				Str("address", file.Address()).
				Bool("verbose", file.Verbose).
				Bool("tls", file.TLS != nil).
				Bool("cors", corsCfg != nil)
			if file.RootDir != nil {
				event = event.Str("root_dir", *file.RootDir)
			}
			if corsCfg != nil {
				if origin, ok := corsCfg.AllowOrigin(); ok {
					event = event.Str("cors_allow_origin", origin)
				}
				if methods, ok := corsCfg.AllowMethods(); ok {
					event = event.Strs("cors_allow_methods", methods)
				}
			}
			event.Msg("Configuration is valid")

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", configPath(*cfgFile))
			return err
		},
	}
}

func configPath(path string) string {
	if path == "" {
		return config.DefaultConfigPath
	}
	return path
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := newRootCmd(viper.New()).ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Error executing command")
	}
}
