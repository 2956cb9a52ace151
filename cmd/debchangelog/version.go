package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/etnz/debchangelog/version"
)

func newVersionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Parse, compare, sort and bump Debian versions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "parse <version>",
			Short: "Print the components of a version",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := version.Parse(args[0])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "epoch: %s\n", v.Epoch())
				fmt.Fprintf(w, "upstream: %s\n", v.UpstreamVersion())
				fmt.Fprintf(w, "revision: %s\n", v.DebianRevision())
				return nil
			},
		},
		&cobra.Command{
			Use:   "compare <a> <b>",
			Short: "Print <, = or > depending on how a sorts against b",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				vs, err := parseAll(args)
				if err != nil {
					return err
				}
				op := [...]string{"<", "=", ">"}[vs[0].Compare(vs[1])+1]
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", vs[0], op, vs[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "sort <version>...",
			Short: "Print versions in ascending order",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				vs, err := parseAll(args)
				if err != nil {
					return err
				}
				version.Sort(vs)
				for _, v := range vs {
					fmt.Fprintln(cmd.OutOrStdout(), v)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "bump <version>",
			Short: "Print the version with its Debian revision incremented",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := version.Parse(args[0])
				if err != nil {
					return err
				}
				next := version.Bump(v)
				a.log.Debug().Stringer("from", v).Stringer("to", next).Msg("version bumped")
				fmt.Fprintln(cmd.OutOrStdout(), next)
				return nil
			},
		},
	)
	return cmd
}

func parseAll(args []string) ([]*version.Version, error) {
	vs := make([]*version.Version, len(args))
	for i, s := range args {
		v, err := version.Parse(s)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}
