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

	"github.com/Seednode/namewheel/spin"
)

type Config struct {
	bind           string
	intensity      string
	metrics        bool
	port           int
	prefix         string
	profile        bool
	profilesFile   string
	sessionTimeout time.Duration
	spinDuration   time.Duration
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
	if c.spinDuration <= 0 {
		return fmt.Errorf("invalid --spin-duration (must be positive): %s", c.spinDuration)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid --session-timeout (must not be negative): %s", c.sessionTimeout)
	}
	if c.intensity == "" {
		return errors.New("--intensity must not be empty")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindEnv lets NAMEWHEEL_* variables fill in any flag not set on the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func normalizeFlags(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newSpinCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spin NAME...",
		Short: "Spin a wheel of names in the terminal.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.spinDuration <= 0 {
				return fmt.Errorf("invalid --spin-duration (must be positive): %s", cfg.spinDuration)
			}

			profiles, err := loadProfiles(cfg.profilesFile)
			if err != nil {
				return err
			}

			return runTerminal(cmd.Context(), cfg, profiles, args)
		},
	}

	cmd.Flags().SetNormalizeFunc(normalizeFlags)

	return cmd
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("NAMEWHEEL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "namewheel",
		Short:         "A shared wheel of names to spin, packed in a single self-hosted webapp.",
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
	pfs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(normalizeFlags)
	pfs.SetNormalizeFunc(normalizeFlags)

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: NAMEWHEEL_BIND)")
	pfs.StringVar(&cfg.intensity, "intensity", spin.DefaultProfileName, "default intensity profile for new wheels (env: NAMEWHEEL_INTENSITY)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "serve prometheus metrics at /metrics (env: NAMEWHEEL_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: NAMEWHEEL_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: NAMEWHEEL_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: NAMEWHEEL_PROFILE)")
	pfs.StringVar(&cfg.profilesFile, "profiles", "", "path to a yaml file of intensity profiles (env: NAMEWHEEL_PROFILES)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle wheels are closed, 0 to keep forever (env: NAMEWHEEL_SESSION_TIMEOUT)")
	pfs.DurationVar(&cfg.spinDuration, "spin-duration", 5*time.Second, "default spin duration for new wheels (env: NAMEWHEEL_SPIN_DURATION)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: NAMEWHEEL_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: NAMEWHEEL_TLS_KEY)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: NAMEWHEEL_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: NAMEWHEEL_VERSION)")

	bindEnv(v, fs)
	bindEnv(v, pfs)

	cmd.AddCommand(newSpinCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("namewheel v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
