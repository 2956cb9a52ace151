// Command debchangelog reads, checks and extends Debian changelog files.
//
// Usage:
//
//	debchangelog show [file]            print (or convert) a changelog
//	debchangelog new [file]             add an entry at the top of a changelog
//	debchangelog version <command>      parse, compare, sort and bump versions
//	debchangelog deb <file.deb>         print the changelog shipped in a package
//	debchangelog key                    print the public signing key
//
// Settings come from debchangelog.yaml, DEBCHANGELOG_* environment variables
// and flags, in increasing priority.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/etnz/debchangelog/changelog"
	"github.com/etnz/debchangelog/config"
)

// defaultChangelog is the changelog of a source package tree.
const defaultChangelog = "debian/changelog"

// app holds the state shared by all commands.
type app struct {
	configPath string
	logLevel   string
	encoding   string
	verifyKey  string

	cfg *config.Config
	log zerolog.Logger

	now    func() time.Time
	getenv func(string) string
}

func newApp(stderr io.Writer) *app {
	return &app{
		log:    newLogger(stderr, zerolog.InfoLevel),
		now:    time.Now,
		getenv: os.Getenv,
	}
}

// newLogger returns a human readable logger writing to w.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.TimeOnly,
	}).Level(level).With().Timestamp().Logger()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "debchangelog",
		Short: "Read, check and extend Debian changelog files",
		Long: `debchangelog reads, checks and extends Debian changelog files
(debian/changelog) and the changelogs shipped inside .deb packages.`,
		Example: `  debchangelog show --blocks 1
  debchangelog new --change "New upstream release." --version 2.11-1
  debchangelog version compare 1.0~rc1 1.0
  debchangelog deb --check hello_2.10-3_amd64.deb`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath+" if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.encoding, "encoding", "", "encoding of changelog files (default utf-8)")

	root.AddCommand(newShowCmd(a), newNewCmd(a), newVersionCmd(a), newDebCmd(a), newKeyCmd(a))
	return root
}

// setup loads the configuration and applies global flags.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{Path: a.configPath, Getenv: a.getenv})
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.encoding != "" {
		cfg.Encoding = a.encoding
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.cfg = cfg
	a.log = newLogger(cmd.ErrOrStderr(), level)
	a.log.Debug().
		Str("encoding", cfg.Encoding).
		Int("max_blocks", cfg.MaxBlocks).
		Str("maintainer", cfg.Maintainer).
		Msg("configuration loaded")
	return nil
}

// parseOptions returns the changelog options from the configuration, with
// the block limit overridden when blocks is positive.
func (a *app) parseOptions(blocks int) []changelog.Option {
	opts := a.cfg.ParseOptions()
	if blocks > 0 {
		opts = append(opts, changelog.WithMaxBlocks(blocks))
	}
	return opts
}

// readChangelog parses the changelog at path; "-" reads standard input.
// When a verification key is set, the input must be clearsigned with it.
func (a *app) readChangelog(cmd *cobra.Command, path string, opts []changelog.Option) (*changelog.Changelog, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	src := changelog.Reader(r)
	if a.verifyKey != "" {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		plain, err := a.verify(data)
		if err != nil {
			return nil, fmt.Errorf("verifying %s: %w", path, err)
		}
		src = changelog.Bytes(plain)
	}
	cl, err := changelog.Parse(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	a.log.Debug().
		Str("file", path).
		Str("package", cl.Package()).
		Stringer("version", cl.Version()).
		Int("blocks", cl.Len()).
		Msg("changelog parsed")
	return cl, nil
}

func main() {
	a := newApp(os.Stderr)
	if err := newRootCmd(a).Execute(); err != nil {
		a.log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
