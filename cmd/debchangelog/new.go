package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/etnz/debchangelog/changelog"
	"github.com/etnz/debchangelog/manifest"
)

func newNewCmd(a *app) *cobra.Command {
	var (
		manifestPath string
		entry        manifest.Entry
		defines      map[string]string
		inPlace      bool
		create       bool
	)
	cmd := &cobra.Command{
		Use:   "new [file]",
		Short: "Add an entry at the top of a changelog",
		Long: `Add an entry at the top of a changelog.

The entry comes from a YAML or JSON entry file (--manifest) or from flags.
Missing fields default to the package name of the previous entry, its
version with the Debian revision bumped, and the configured maintainer,
distribution and urgency.

The result is printed on standard output unless --in-place is given.`,
		Example: `  debchangelog new --change "Fix the greeting. (Closes: #1234)"
  debchangelog new -i --version 2.11-1 --distribution unstable --change "New upstream release."
  debchangelog new -i --manifest release.yaml --define upstream=2.11`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultChangelog
			if len(args) == 1 {
				path = args[0]
			}

			cl, err := a.readChangelog(cmd, path, a.cfg.ParseOptions())
			switch {
			case create && errors.Is(err, fs.ErrNotExist):
				cl = changelog.New(a.cfg.ParseOptions()...)
				a.log.Info().Str("file", path).Msg("creating changelog")
			case err != nil:
				return err
			}

			e := &entry
			if manifestPath != "" {
				if e, err = manifest.Load(manifestPath, a.listener()); err != nil {
					return err
				}
			}
			if len(defines) > 0 {
				if e.Defines == nil {
					e.Defines = make(map[string]string)
				}
				for k, v := range defines {
					e.Defines[k] = v
				}
			}

			b, err := e.Apply(cl, manifest.Defaults{
				Now:          a.now(),
				Maintainer:   a.cfg.Maintainer,
				Distribution: a.cfg.Distribution,
				Urgency:      a.cfg.Urgency,
			}, a.listener())
			if err != nil {
				return fmt.Errorf("adding entry: %w", err)
			}

			out, err := cl.Bytes()
			if err != nil {
				return err
			}
			if !inPlace || path == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := writeFileAtomic(path, out); err != nil {
				return err
			}
			a.log.Info().
				Str("file", path).
				Str("package", b.Package()).
				Stringer("version", b.Version()).
				Strs("distributions", b.Distributions()).
				Msg("entry added")
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "entry file (YAML or JSON)")
	cmd.Flags().StringToStringVarP(&defines, "define", "D", nil, "template variable (KEY=VALUE)")
	cmd.Flags().StringVar(&entry.Package, "package", "", "source package name")
	cmd.Flags().StringVarP(&entry.Version, "version", "v", "", "version of the entry")
	cmd.Flags().StringSliceVarP(&entry.Distributions, "distribution", "d", nil, "target distribution (repeatable)")
	cmd.Flags().StringVarP(&entry.Urgency, "urgency", "u", "", "urgency of the entry")
	cmd.Flags().StringArrayVarP(&entry.Changes, "change", "c", nil, "change item (repeatable)")
	cmd.Flags().StringVar(&entry.Author, "author", "", `maintainer, "Name <email>"`)
	cmd.Flags().StringVar(&entry.Date, "date", "", "trailer date (default now)")
	cmd.Flags().BoolVar(&entry.AllowLowerVersion, "allow-lower-version", false, "accept a version not newer than the previous one")
	cmd.Flags().BoolVarP(&inPlace, "in-place", "i", false, "rewrite the changelog file")
	cmd.Flags().BoolVar(&create, "create", false, "start a new changelog when the file does not exist")
	cmd.MarkFlagsMutuallyExclusive("manifest", "change")
	return cmd
}

// listener forwards manifest events to the debug log.
func (a *app) listener() manifest.Listener {
	return func(e fmt.Stringer) {
		a.log.Debug().Stringer("event", e).Msg("manifest")
	}
}

// writeFileAtomic replaces path with data, keeping its permissions.
func writeFileAtomic(path string, data []byte) error {
	mode := fs.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
