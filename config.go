/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultWebRounds = 3

type Config struct {
	bind           string
	configFile     string
	port           int
	prefix         string
	profile        bool
	questions      string
	rounds         int
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.rounds < 0 {
		return fmt.Errorf("invalid round count (must not be negative): %d", c.rounds)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// webRounds is the round count pre-filled on the setup form.
func (c *Config) webRounds() int {
	if c.rounds > 0 {
		return c.rounds
	}
	return defaultWebRounds
}

// bindFlags fills every flag not set on the command line from the
// environment or, once loaded, the config file.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func normalizeFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func loadConfigFile(cfg *Config, v *viper.Viper, fs *pflag.FlagSet) error {
	if cfg.configFile == "" {
		return nil
	}

	v.SetConfigFile(cfg.configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error loading config file: %w", err)
	}

	bindFlags(v, fs)

	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("HERD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "herd",
		Short:         "Herd Mentality: a party quiz where the majority answer wins.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfigFile(cfg, v, cmd.Flags()); err != nil {
				return err
			}
			return cfg.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()
	normalizeFlags(pfs)

	pfs.StringVarP(&cfg.configFile, "config", "c", "", "path to a yaml, toml or json config file (env: HERD_CONFIG)")
	pfs.StringVarP(&cfg.questions, "questions", "q", "", "question source: file path, http(s) URL or sqlite:PATH; built-in list if empty (env: HERD_QUESTIONS)")
	pfs.IntVarP(&cfg.rounds, "rounds", "r", 0, "number of rounds per game; 0 asks interactively, or pre-fills 3 on the web (env: HERD_ROUNDS)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: HERD_VERBOSE)")

	fs := cmd.Flags()
	normalizeFlags(fs)

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: HERD_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: HERD_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: HERD_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: HERD_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle games are ended (env: HERD_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: HERD_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: HERD_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: HERD_VERSION)")

	bindFlags(v, pfs)
	bindFlags(v, fs)

	cmd.AddCommand(newPlayCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("herd v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newPlayCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play a game in the terminal, passing the keyboard between players.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Play(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
