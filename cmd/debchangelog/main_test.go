package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/blakesmith/ar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etnz/debchangelog/changelog"
	"github.com/etnz/debchangelog/deb"
	"github.com/etnz/debchangelog/sign"
	"github.com/etnz/debchangelog/version"
)

const helloChangelog = `hello (2.10-3) unstable; urgency=medium

  * Fix the greeting. (Closes: #1234)

 -- Jane Doe <jane@example.org>  Mon, 01 Jan 2024 00:00:00 +0000

hello (2.10-2) unstable; urgency=low

  * Initial packaging.

 -- Jane Doe <jane@example.org>  Sun, 31 Dec 2023 00:00:00 +0000
`

var now = time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC)

// run executes the command line in a fresh application.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	a := newApp(io.Discard)
	a.now = func() time.Time { return now }
	a.getenv = func(string) string { return "" }

	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// workspace changes to an empty directory holding debian/changelog.
func workspace(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll("debian", 0755))
	require.NoError(t, os.WriteFile(defaultChangelog, []byte(content), 0644))
	return dir
}

func TestRootCmdStructure(t *testing.T) {
	cmd := newRootCmd(newApp(io.Discard))
	assert.Equal(t, "debchangelog", cmd.Use)
	assert.NotEmpty(t, cmd.Example)
	for _, name := range []string{"config", "log-level", "encoding"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"show", "new", "version", "deb", "key"})
}

func TestShow(t *testing.T) {
	workspace(t, helloChangelog)

	out, err := run(t, "", "show")
	require.NoError(t, err)
	assert.Equal(t, helloChangelog, out)

	out, err = run(t, helloChangelog, "show", "-")
	require.NoError(t, err)
	assert.Equal(t, helloChangelog, out)

	out, err = run(t, "", "show", "--blocks", "1", defaultChangelog)
	require.NoError(t, err)
	assert.Equal(t, strings.SplitAfter(helloChangelog, "+0000\n\n")[0], out)
}

func TestShowStructured(t *testing.T) {
	workspace(t, helloChangelog)

	out, err := run(t, "", "show", "--format", "json")
	require.NoError(t, err)
	var blocks []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, "hello", blocks[0]["package"])
	assert.Equal(t, "2.10-3", blocks[0]["version"])
	assert.Equal(t, []any{float64(1234)}, blocks[0]["bugs_closed"])
	assert.Equal(t, "low", blocks[1]["urgency"])

	out, err = run(t, "", "show", "-f", "yaml", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "- package: hello\n")
	assert.Contains(t, out, "urgency: medium\n")
	assert.NotContains(t, out, "Initial packaging")

	_, err = run(t, "", "show", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestShowErrors(t *testing.T) {
	workspace(t, "not a changelog\n")

	_, err := run(t, "", "show")
	assert.ErrorIs(t, err, changelog.ErrParse)

	_, err = run(t, "", "show", "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "", "--log-level", "loud", "show")
	assert.Error(t, err)
}

func TestShowEncoding(t *testing.T) {
	text := strings.Replace(helloChangelog, "Jane Doe", "Jané Doe", -1)
	latin1, err := changelog.Encode(text, "latin1")
	require.NoError(t, err)
	workspace(t, string(latin1))

	_, err = run(t, "", "show")
	assert.ErrorIs(t, err, changelog.ErrEncoding)

	out, err := run(t, "", "--encoding", "latin1", "show")
	require.NoError(t, err)
	assert.Equal(t, string(latin1), out)

	out, err = run(t, "", "--encoding", "latin1", "show", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "Jané Doe")
}

func generateTestKey(t *testing.T) string {
	t.Helper()
	entity, err := openpgp.NewEntity("Test", "test", "test@example.com", nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(w, nil))
	require.NoError(t, w.Close())
	return buf.String()
}

func TestShowSign(t *testing.T) {
	dir := workspace(t, helloChangelog)

	_, err := run(t, "", "show", "--sign")
	assert.ErrorContains(t, err, "signing_key")

	keyPath := filepath.Join(dir, "key.asc")
	require.NoError(t, os.WriteFile(keyPath, []byte(generateTestKey(t)), 0600))
	require.NoError(t, os.WriteFile("debchangelog.yaml", []byte("signing_key: "+keyPath+"\n"), 0644))

	out, err := run(t, "", "show", "--sign")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "-----BEGIN PGP SIGNED MESSAGE-----"))
	assert.Contains(t, out, "hello (2.10-3) unstable; urgency=medium")

	_, err = run(t, "", "show", "--sign", "--format", "json")
	assert.Error(t, err)
}

func TestKeyAndVerify(t *testing.T) {
	dir := workspace(t, helloChangelog)

	_, err := run(t, "", "key")
	assert.ErrorContains(t, err, "signing_key")

	keyPath := filepath.Join(dir, "key.asc")
	require.NoError(t, os.WriteFile(keyPath, []byte(generateTestKey(t)), 0600))
	require.NoError(t, os.WriteFile("debchangelog.yaml", []byte("signing_key: "+keyPath+"\n"), 0644))

	pub, err := run(t, "", "key")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pub, "-----BEGIN PGP PUBLIC KEY BLOCK-----"))
	require.NoError(t, os.WriteFile("pub.asc", []byte(pub), 0644))

	bin, err := run(t, "", "key", "--binary")
	require.NoError(t, err)
	assert.NotEmpty(t, bin)
	assert.NotContains(t, bin, "BEGIN PGP")

	signed, err := run(t, "", "show", "--sign")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile("changelog.asc", []byte(signed), 0644))

	out, err := run(t, "", "show", "--verify", "pub.asc", "changelog.asc")
	require.NoError(t, err)
	assert.Equal(t, helloChangelog, out)

	out, err = run(t, signed, "show", "--verify", "pub.asc", "-f", "json", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "2.10-3"`)

	tampered := strings.Replace(signed, "Fix the greeting.", "Break the greeting.", 1)
	require.NoError(t, os.WriteFile("tampered.asc", []byte(tampered), 0644))
	_, err = run(t, "", "show", "--verify", "pub.asc", "tampered.asc")
	assert.Error(t, err)

	_, err = run(t, "", "show", "--verify", "pub.asc")
	assert.ErrorIs(t, err, sign.ErrNotSigned)
}

func TestNew(t *testing.T) {
	workspace(t, helloChangelog)

	out, err := run(t, "", "new",
		"--change", "New upstream release.",
		"--version", "2.11-1",
		"--distribution", "unstable",
		"--author", "John Roe <john@example.org>")
	require.NoError(t, err)
	assert.Equal(t, `hello (2.11-1) unstable; urgency=medium

  * New upstream release.

 -- John Roe <john@example.org>  Thu, 01 Feb 2024 10:30:00 +0000

`+helloChangelog, out)

	content, err := os.ReadFile(defaultChangelog)
	require.NoError(t, err)
	assert.Equal(t, helloChangelog, string(content), "file is unchanged without --in-place")
}

func TestNewInPlaceWithManifest(t *testing.T) {
	workspace(t, helloChangelog)
	require.NoError(t, os.WriteFile("entry.yaml", []byte(`
version: "{{.upstream}}-{{.rev}}"
distributions: [experimental]
changes:
  - Rebuild for {{.reason}}.
`), 0644))
	require.NoError(t, os.WriteFile("debchangelog.yaml", []byte("maintainer: John Roe <john@example.org>\n"), 0644))

	out, err := run(t, "", "new", "-i", "-m", "entry.yaml", "-D", "rev=4", "-D", "reason=the transition")
	require.NoError(t, err)
	assert.Empty(t, out)

	cl, err := changelog.Parse(changelog.Reader(mustOpen(t, defaultChangelog)))
	require.NoError(t, err)
	require.Equal(t, 3, cl.Len())
	assert.Equal(t, "2.10-4", cl.Version().String())
	assert.Equal(t, []string{"experimental"}, cl.Head().Distributions())
	assert.Equal(t, "John Roe <john@example.org>", cl.Head().Author())
	assert.Equal(t, "  * Rebuild for the transition.", cl.Head().Changes()[1])
}

func TestNewDefaults(t *testing.T) {
	workspace(t, helloChangelog)
	require.NoError(t, os.WriteFile("debchangelog.yaml", []byte("maintainer: John Roe <john@example.org>\ndistribution: unstable\n"), 0644))

	out, err := run(t, "", "new", "-c", "Fix a typo.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "hello (2.10-4) unstable; urgency=medium\n"))

	_, err = run(t, "", "new", "-c", "Go back.", "-v", "2.10-1")
	assert.Error(t, err)

	_, err = run(t, "", "new", "-c", "Go back.", "-v", "2.10-1", "--allow-lower-version")
	assert.NoError(t, err)
}

func TestNewCreate(t *testing.T) {
	t.Chdir(t.TempDir())
	args := []string{"new", "-i", "--package", "hello", "-v", "1.0-1", "-d", "unstable",
		"-c", "Initial release. (Closes: #1)", "--author", "Jane Doe <jane@example.org>", "changelog"}

	_, err := run(t, "", args...)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "", append([]string{"--log-level", "debug"}, append(args, "--create")...)...)
	require.NoError(t, err)

	content, err := os.ReadFile("changelog")
	require.NoError(t, err)
	assert.Equal(t, `hello (1.0-1) unstable; urgency=medium

  * Initial release. (Closes: #1)

 -- Jane Doe <jane@example.org>  Thu, 01 Feb 2024 10:30:00 +0000

`, string(content))
}

func TestVersionCommands(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"version", "parse", "1:2.30-1ubuntu1"}, "epoch: 1\nupstream: 2.30\nrevision: 1ubuntu1\n"},
		{[]string{"version", "compare", "1.0~rc1", "1.0"}, "1.0~rc1 < 1.0\n"},
		{[]string{"version", "compare", "1.0-0", "1.0"}, "1.0-0 = 1.0\n"},
		{[]string{"version", "compare", "1:0.1", "9.9"}, "1:0.1 > 9.9\n"},
		{[]string{"version", "sort", "1.10", "1.9", "1.0~rc1", "1.0"}, "1.0~rc1\n1.0\n1.9\n1.10\n"},
		{[]string{"version", "bump", "2.10-3"}, "2.10-4\n"},
		{[]string{"version", "bump", "2.10"}, "2.10-1\n"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	_, err := run(t, "", "version", "parse", "1.0-")
	assert.ErrorIs(t, err, version.ErrInvalidVersion)
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

// writeDeb writes a minimal .deb installing text as the package changelog.
func writeDeb(t *testing.T, path, control, text string) {
	t.Helper()

	tarGz := func(files map[string][]byte) []byte {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		tw := tar.NewWriter(gw)
		for name, body := range files {
			require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
			_, err := tw.Write(body)
			require.NoError(t, err)
		}
		require.NoError(t, tw.Close())
		require.NoError(t, gw.Close())
		return buf.Bytes()
	}

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	members := []struct {
		name string
		body []byte
	}{
		{string(deb.PkgDebianBinary), []byte("2.0\n")},
		{string(deb.PkgControlTar) + ".gz", tarGz(map[string][]byte{"./control": []byte(control)})},
		{string(deb.PkgDataTar) + ".gz", tarGz(map[string][]byte{"./usr/share/doc/hello/changelog.Debian.gz": gz.Bytes()})},
	}

	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	require.NoError(t, w.WriteGlobalHeader())
	for _, m := range members {
		require.NoError(t, w.WriteHeader(&ar.Header{Name: m.name, Size: int64(len(m.body)), Mode: 0644, ModTime: now}))
		_, err := w.Write(m.body)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestDeb(t *testing.T) {
	t.Chdir(t.TempDir())
	writeDeb(t, "hello.deb", "Package: hello\nVersion: 2.10-3\nArchitecture: amd64\n", helloChangelog)
	writeDeb(t, "stale.deb", "Package: hello\nVersion: 2.10-4\nArchitecture: amd64\n", helloChangelog)

	out, err := run(t, "", "deb", "--check", "hello.deb")
	require.NoError(t, err)
	assert.Equal(t, helloChangelog, out)

	out, err = run(t, "", "deb", "-n", "1", "-f", "json", "hello.deb")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "2.10-3"`)

	_, err = run(t, "", "deb", "stale.deb")
	assert.NoError(t, err)

	_, err = run(t, "", "deb", "--check", "stale.deb")
	assert.ErrorIs(t, err, deb.ErrVersionMismatch)

	_, err = run(t, "", "deb", "missing.deb")
	assert.Error(t, err)
}
