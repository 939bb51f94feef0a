package vault

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

const testSalt = "unit-test-salt"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(testSalt)
	require.NoError(t, err)
	return v
}

func TestNew_RequiresSalt(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	keys := []string{
		"0x1837c1be8e2995ec11cda2b066151be2cfb48adf9e47b151d46adab3a21cdf67",
		"5KQwrPbwdL6PhXujxW37FSSQZ1JiwsST4cqQzDeyXtP79zkvFD3",
		"short",
	}
	for _, key := range keys {
		blob, err := v.Encrypt(key, "135790")
		require.NoError(t, err)

		got, err := v.Decrypt(blob, "135790")
		require.NoError(t, err)
		assert.Equal(t, key, got)
	}
}

func TestEncrypt_BlobFormat(t *testing.T) {
	v := newTestVault(t)

	blob, err := v.Encrypt("secret", "000000")
	require.NoError(t, err)

	parts := strings.Split(blob, ":")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 32, "iv must be 16 bytes hex-encoded")
	assert.NotEmpty(t, parts[1])
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	v := newTestVault(t)

	first, err := v.Encrypt("secret", "123456")
	require.NoError(t, err)
	second, err := v.Encrypt("secret", "123456")
	require.NoError(t, err)

	// Same inputs must never produce the same blob.
	assert.NotEqual(t, first, second)
}

func TestDecrypt_WrongPin(t *testing.T) {
	v := newTestVault(t)

	blob, err := v.Encrypt("secret", "111111")
	require.NoError(t, err)

	_, err = v.Decrypt(blob, "111112")
	assert.True(t, dialerr.Is(err, dialerr.ErrDecryption))
}

func TestDecrypt_MalformedBlob(t *testing.T) {
	v := newTestVault(t)

	valid, err := v.Encrypt("secret", "111111")
	require.NoError(t, err)
	_, sealed, _ := strings.Cut(valid, ":")

	blobs := []string{
		"",
		"no-separator",
		"a:b:c",
		"zz:" + sealed,                   // non-hex iv
		"abcd:" + sealed,                 // iv too short
		strings.Repeat("ab", 16) + ":zz", // non-hex ciphertext
	}
	for _, blob := range blobs {
		_, err := v.Decrypt(blob, "111111")
		// Malformed blobs and wrong PINs return the same error.
		assert.True(t, dialerr.Is(err, dialerr.ErrDecryption), "blob %q", blob)
	}
}

func TestDecrypt_UniformFailure(t *testing.T) {
	v := newTestVault(t)

	blob, err := v.Encrypt("secret", "111111")
	require.NoError(t, err)

	_, malformedErr := v.Decrypt("not-a-blob", "111111")
	_, wrongPinErr := v.Decrypt(blob, "999999")

	// Identical error values: callers cannot tell the failure modes apart.
	assert.Equal(t, malformedErr, wrongPinErr)
	assert.True(t, dialerr.Is(malformedErr, dialerr.ErrDecryption))
}

func TestDecrypt_MalformedBlobPaysKeyDerivation(t *testing.T) {
	v := newTestVault(t)

	// A malformed blob must still run the scrypt key derivation, otherwise
	// the call duration reveals whether the blob or the PIN was bad. The
	// derivation dominates the call at well over this bound; a blob-first
	// rejection returns in microseconds.
	start := time.Now()
	_, err := v.Decrypt("not-a-blob", "111111")
	elapsed := time.Since(start)

	assert.True(t, dialerr.Is(err, dialerr.ErrDecryption))
	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond,
		"malformed-blob failure returned before key derivation could have run")
}

func TestDecrypt_DifferentSalt(t *testing.T) {
	v1 := newTestVault(t)
	v2, err := New("another-salt")
	require.NoError(t, err)

	blob, err := v1.Encrypt("secret", "111111")
	require.NoError(t, err)

	_, err = v2.Decrypt(blob, "111111")
	assert.True(t, dialerr.Is(err, dialerr.ErrDecryption))
}

func TestHashPin_Deterministic(t *testing.T) {
	assert.Equal(t, HashPin("135790"), HashPin("135790"))
	assert.NotEqual(t, HashPin("135790"), HashPin("135791"))
	assert.Len(t, HashPin("135790"), 64)
}

func TestComparePin(t *testing.T) {
	digest := HashPin("135790")

	assert.True(t, ComparePin("135790", digest))
	assert.False(t, ComparePin("135791", digest))
	assert.False(t, ComparePin("", digest))
	assert.False(t, ComparePin("135790", ""))
}

// ComparePin hashes the candidate before comparing, so the comparison always
// runs over two fixed-length digests and subtle.ConstantTimeCompare's
// constant-time contract applies: the time cannot depend on where the first
// mismatched byte falls. This pins the fixed-length precondition.
func TestComparePin_FixedLengthDigests(t *testing.T) {
	for _, pin := range []string{"", "1", "135790", strings.Repeat("9", 128)} {
		assert.Len(t, HashPin(pin), 64, "pin %q", pin)
	}
}
