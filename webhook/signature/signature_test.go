package signature_test

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/marcelsud/webhook-engine/webhook/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret(t *testing.T) signature.Secret {
	t.Helper()

	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)

	secret, err := signature.ParseSecret(signature.SecretPrefix + base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	return secret
}

func TestParseSecret(t *testing.T) {
	t.Run("requires whsec_ prefix", func(t *testing.T) {
		_, err := signature.ParseSecret("c2VjcmV0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "whsec_")
	})

	t.Run("rejects secrets that are too short", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte("tiny"))
		_, err := signature.ParseSecret(signature.SecretPrefix + short)
		require.Error(t, err)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := signature.ParseSecret(signature.SecretPrefix + "not base64!!!")
		require.Error(t, err)
	})
}

func TestSignAndVerify(t *testing.T) {
	secret := testSecret(t)
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{}}`)
	timestamp := time.Now()

	sig, err := signature.Sign(secret, "msg_1", timestamp, payload)
	require.NoError(t, err)
	assert.Equal(t, signature.SignatureVersion, sig.Version)

	t.Run("valid signature verifies", func(t *testing.T) {
		valid, err := signature.Verify(secret, "msg_1", timestamp, payload, sig)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("tampered payload fails", func(t *testing.T) {
		valid, err := signature.Verify(secret, "msg_1", timestamp, []byte(`{"id":"evt_2"}`), sig)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		valid, err := signature.Verify(testSecret(t), "msg_1", timestamp, payload, sig)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("message id with dot is rejected", func(t *testing.T) {
		_, err := signature.Sign(secret, "msg.1", timestamp, payload)
		require.Error(t, err)
	})
}

func TestParseSignatureHeader(t *testing.T) {
	t.Run("multiple space-delimited signatures", func(t *testing.T) {
		sigs, err := signature.ParseSignatureHeader("v1,abc v1,def")
		require.NoError(t, err)
		require.Len(t, sigs, 2)
		assert.Equal(t, "abc", sigs[0].Signature)
		assert.Equal(t, "def", sigs[1].Signature)
	})

	t.Run("empty header", func(t *testing.T) {
		_, err := signature.ParseSignatureHeader("")
		require.Error(t, err)
	})

	t.Run("malformed entry", func(t *testing.T) {
		_, err := signature.ParseSignatureHeader("nocomma")
		require.Error(t, err)
	})
}

func TestVerifierVerifyRequest(t *testing.T) {
	secret := testSecret(t)
	verifier := signature.NewVerifier([]signature.Secret{secret}, signature.DefaultTolerance)

	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{}}`)

	sign := func(t *testing.T, s signature.Secret, msgID string, ts time.Time) string {
		t.Helper()
		sig, err := signature.Sign(s, msgID, ts, payload)
		require.NoError(t, err)
		return sig.Version + "," + sig.Signature
	}

	t.Run("valid delivery", func(t *testing.T) {
		ts := time.Now()
		header := sign(t, secret, "msg_1", ts)

		err := verifier.VerifyRequest("msg_1", timestampHeader(ts), header, payload)
		require.NoError(t, err)
	})

	t.Run("rotated secret still verifies", func(t *testing.T) {
		oldSecret := testSecret(t)
		rotating := signature.NewVerifier([]signature.Secret{secret, oldSecret}, signature.DefaultTolerance)

		ts := time.Now()
		header := sign(t, oldSecret, "msg_2", ts)

		err := rotating.VerifyRequest("msg_2", timestampHeader(ts), header, payload)
		require.NoError(t, err)
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		ts := time.Now().Add(-time.Hour)
		header := sign(t, secret, "msg_3", ts)

		err := verifier.VerifyRequest("msg_3", timestampHeader(ts), header, payload)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tolerance")
	})

	t.Run("wrong signature rejected", func(t *testing.T) {
		ts := time.Now()
		header := sign(t, testSecret(t), "msg_4", ts)

		err := verifier.VerifyRequest("msg_4", timestampHeader(ts), header, payload)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no signature matched")
	})

	t.Run("missing id rejected", func(t *testing.T) {
		ts := time.Now()
		header := sign(t, secret, "msg_5", ts)

		err := verifier.VerifyRequest("", timestampHeader(ts), header, payload)
		require.Error(t, err)
	})
}

func timestampHeader(ts time.Time) string {
	return strconv.FormatInt(ts.Unix(), 10)
}
