package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/etnz/debchangelog/deb"
)

func newDebCmd(a *app) *cobra.Command {
	var (
		out   outputFlags
		check bool
	)
	cmd := &cobra.Command{
		Use:   "deb <file.deb>",
		Short: "Print the changelog shipped in a binary package",
		Long: `Print the changelog installed by a binary package in
/usr/share/doc/<package>/, without installing it.

With --check, fail unless the most recent entry matches the package name
and version of the control file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			pkg, err := deb.NewArchive(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			path, _ := pkg.ChangelogPath()
			a.log.Debug().
				Str("file", args[0]).
				Str("package", pkg.Metadata.Package).
				Stringer("version", pkg.Metadata.Version).
				Str("changelog", path).
				Msg("package read")

			cl, err := pkg.Changelog(a.parseOptions(out.blocks)...)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if check {
				if err := pkg.CheckVersion(cl); err != nil {
					return fmt.Errorf("checking %s: %w", args[0], err)
				}
				a.log.Info().Str("file", args[0]).Stringer("version", cl.Version()).Msg("changelog matches control file")
			}
			return a.writeChangelog(cmd.OutOrStdout(), cl, out)
		},
	}
	out.register(cmd)
	cmd.Flags().BoolVar(&check, "check", false, "check the changelog against the control file")
	return cmd
}
