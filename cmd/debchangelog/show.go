package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/etnz/debchangelog/changelog"
	"github.com/etnz/debchangelog/sign"
	"github.com/etnz/debchangelog/version"
)

// outputFlags are shared by the commands printing a changelog.
type outputFlags struct {
	blocks int
	format string
	sign   bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.blocks, "blocks", "n", 0, "number of entries to read (default all)")
	cmd.Flags().StringVarP(&o.format, "format", "f", "text", "output format: text, yaml or json")
	cmd.Flags().BoolVar(&o.sign, "sign", false, "clearsign the text output with the configured signing_key")
}

func newShowCmd(a *app) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "show [file]",
		Short: "Print a changelog",
		Long: `Print a changelog, as text in its encoding, or as structured YAML or JSON.

The file defaults to ` + defaultChangelog + `; "-" reads standard input.
With --verify, the file must be clearsigned by the given public key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultChangelog
			if len(args) == 1 {
				path = args[0]
			}
			cl, err := a.readChangelog(cmd, path, a.parseOptions(out.blocks))
			if err != nil {
				return err
			}
			return a.writeChangelog(cmd.OutOrStdout(), cl, out)
		},
	}
	out.register(cmd)
	cmd.Flags().StringVar(&a.verifyKey, "verify", "", "armored public key file the input must be clearsigned with")
	return cmd
}

// blockView is the structured form of a block.
type blockView struct {
	Package             string            `json:"package" yaml:"package"`
	Version             *version.Version  `json:"version" yaml:"version"`
	Distributions       []string          `json:"distributions" yaml:"distributions"`
	Urgency             string            `json:"urgency" yaml:"urgency"`
	UrgencyComment      string            `json:"urgency_comment,omitempty" yaml:"urgency_comment,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Author              string            `json:"author,omitempty" yaml:"author,omitempty"`
	Date                string            `json:"date,omitempty" yaml:"date,omitempty"`
	Changes             []string          `json:"changes" yaml:"changes"`
	BugsClosed          []int             `json:"bugs_closed,omitempty" yaml:"bugs_closed,omitempty"`
	LaunchpadBugsClosed []int             `json:"launchpad_bugs_closed,omitempty" yaml:"launchpad_bugs_closed,omitempty"`
}

func newBlockView(b *changelog.Block) blockView {
	v := blockView{
		Package:             b.Package(),
		Version:             b.Version(),
		Distributions:       b.Distributions(),
		Urgency:             b.Urgency(),
		UrgencyComment:      b.UrgencyComment(),
		Author:              b.Author(),
		Date:                b.Date(),
		Changes:             b.Changes(),
		BugsClosed:          b.BugsClosed(),
		LaunchpadBugsClosed: b.LaunchpadBugsClosed(),
	}
	if md := b.Metadata(); len(md) > 0 {
		v.Metadata = make(map[string]string, len(md))
		for _, f := range md {
			v.Metadata[f.Key] = f.Value
		}
	}
	return v
}

// writeChangelog prints cl in the requested format.
func (a *app) writeChangelog(w io.Writer, cl *changelog.Changelog, o outputFlags) error {
	if o.sign && o.format != "text" {
		return fmt.Errorf("--sign requires the text format")
	}

	switch o.format {
	case "text":
		b, err := cl.Bytes()
		if err != nil {
			return err
		}
		if o.sign {
			if b, err = a.clearsign(b); err != nil {
				return err
			}
		}
		_, err = w.Write(b)
		return err
	case "yaml", "json":
		views := make([]blockView, 0, cl.Len())
		for _, b := range cl.All() {
			views = append(views, newBlockView(b))
		}
		if o.format == "json" {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(views)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", o.format)
}

// signingKey reads the private key named by signing_key.
func (a *app) signingKey() (string, error) {
	if a.cfg.SigningKey == "" {
		return "", fmt.Errorf("signing_key is not set in the configuration")
	}
	key, err := os.ReadFile(a.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("reading signing key: %w", err)
	}
	return string(key), nil
}

func (a *app) clearsign(b []byte) ([]byte, error) {
	key, err := a.signingKey()
	if err != nil {
		return nil, err
	}
	signed, err := sign.Clearsign(b, key)
	if err != nil {
		return nil, fmt.Errorf("signing changelog: %w", err)
	}
	a.log.Debug().Str("key", a.cfg.SigningKey).Msg("changelog signed")
	return signed, nil
}

func (a *app) verify(signed []byte) ([]byte, error) {
	key, err := os.ReadFile(a.verifyKey)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	plain, err := sign.Verify(signed, string(key))
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("key", a.verifyKey).Msg("signature verified")
	return plain, nil
}
