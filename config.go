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

type Config struct {
	bind             string
	catalog          string
	defaultCategory  string
	maxCapacity      int
	port             int
	prefix           string
	profile          bool
	reapInterval     time.Duration
	sessionRetention time.Duration
	tlsCert          string
	tlsKey           string
	verbose          bool
	version          bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxCapacity < 1 {
		return fmt.Errorf("invalid max capacity (must be at least 1): %d", c.maxCapacity)
	}
	if c.sessionRetention <= 0 {
		return fmt.Errorf("invalid session retention (must be positive): %s", c.sessionRetention)
	}
	if c.reapInterval <= 0 {
		return fmt.Errorf("invalid reap interval (must be positive): %s", c.reapInterval)
	}
	if c.defaultCategory == "" {
		return errors.New("--default-category must not be empty")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CARDMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cardmatch",
		Short:         "Swipe through a shared deck of cards with friends until the group agrees on one.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CARDMATCH_BIND)")
	fs.StringVar(&cfg.catalog, "catalog", "", "path to a yaml/json/toml file of card categories (env: CARDMATCH_CATALOG)")
	fs.StringVar(&cfg.defaultCategory, "default-category", builtinCategory, "category used when a session is created without cards (env: CARDMATCH_DEFAULT_CATEGORY)")
	fs.IntVar(&cfg.maxCapacity, "max-capacity", 20, "maximum number of participants per session (env: CARDMATCH_MAX_CAPACITY)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CARDMATCH_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CARDMATCH_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CARDMATCH_PROFILE)")
	fs.DurationVar(&cfg.reapInterval, "reap-interval", time.Hour, "how often expired sessions are swept (env: CARDMATCH_REAP_INTERVAL)")
	fs.DurationVar(&cfg.sessionRetention, "session-retention", 24*time.Hour, "time after creation before a session is evicted (env: CARDMATCH_SESSION_RETENTION)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CARDMATCH_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CARDMATCH_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CARDMATCH_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CARDMATCH_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("cardmatch v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
