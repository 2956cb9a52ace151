package sign

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestKey returns a new ASCII-armored private key.
func generateTestKey(t *testing.T, email string) string {
	t.Helper()
	entity, err := openpgp.NewEntity("Test", "test", email, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(w, nil))
	require.NoError(t, w.Close())
	return buf.String()
}

const entry = `hello (2.10-3) unstable; urgency=medium

  * Fix the greeting.

 -- Jane Doe <jane@example.org>  Mon, 01 Jan 2024 00:00:00 +0000
`

func TestClearsign(t *testing.T) {
	key := generateTestKey(t, "test@example.com")

	signed, err := Clearsign([]byte(entry), key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(signed), "-----BEGIN PGP SIGNED MESSAGE-----"))
	assert.Contains(t, string(signed), "-----BEGIN PGP SIGNATURE-----")
	assert.Contains(t, string(signed), "hello (2.10-3) unstable; urgency=medium")

	pub, err := PublicKey(key, true)
	require.NoError(t, err)

	text, err := Verify(signed, string(pub))
	require.NoError(t, err)
	assert.Contains(t, string(text), " -- Jane Doe <jane@example.org>  Mon, 01 Jan 2024 00:00:00 +0000")
}

func TestVerifyWrongKey(t *testing.T) {
	signed, err := Clearsign([]byte(entry), generateTestKey(t, "a@example.com"))
	require.NoError(t, err)

	other, err := PublicKey(generateTestKey(t, "b@example.com"), true)
	require.NoError(t, err)

	_, err = Verify(signed, string(other))
	assert.Error(t, err)

	_, err = Verify([]byte(entry), string(other))
	assert.ErrorIs(t, err, ErrNotSigned)
}

func TestPublicKey(t *testing.T) {
	key := generateTestKey(t, "test@example.com")

	pubArmored, err := PublicKey(key, true)
	require.NoError(t, err)
	assert.Contains(t, string(pubArmored), "-----BEGIN PGP PUBLIC KEY BLOCK-----")

	pubBin, err := PublicKey(key, false)
	require.NoError(t, err)
	assert.NotEmpty(t, pubBin)

	_, err = Clearsign([]byte(entry), string(pubArmored))
	assert.ErrorIs(t, err, ErrNoPrivateKey)

	_, err = PublicKey("not a key", true)
	assert.Error(t, err)
}
