package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

/* Verification of provider webhook signatures
 * The signed content is {msgID}.{timestamp}.{payload}, HMAC-SHA256 with a
 * whsec_-prefixed symmetric secret. Multiple secrets are accepted so the
 * provider key can rotate without dropping deliveries.
 */

const (
	// SecretPrefix is the prefix for symmetric signing secrets
	SecretPrefix = "whsec_"

	// SignatureVersion is the version identifier for symmetric signatures
	SignatureVersion = "v1"

	// MinSecretBytes is the minimum accepted secret size (192 bits)
	MinSecretBytes = 24

	// MaxSecretBytes is the maximum accepted secret size (512 bits)
	MaxSecretBytes = 64

	// DefaultTolerance bounds how old or how far in the future a signed
	// timestamp may be before the delivery is rejected as a replay
	DefaultTolerance = 5 * time.Minute
)

// Secret represents a webhook signing secret
type Secret struct {
	raw    []byte
	base64 string
}

// ParseSecret parses a base64-encoded secret with the whsec_ prefix
func ParseSecret(encoded string) (Secret, error) {
	if !strings.HasPrefix(encoded, SecretPrefix) {
		return Secret{}, fmt.Errorf("secret must start with %s prefix", SecretPrefix)
	}

	b64 := strings.TrimPrefix(encoded, SecretPrefix)
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Secret{}, fmt.Errorf("decoding base64 secret: %w", err)
	}

	if len(raw) < MinSecretBytes || len(raw) > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	return Secret{
		raw:    raw,
		base64: encoded,
	}, nil
}

// String returns the base64-encoded secret with prefix
func (s Secret) String() string {
	return s.base64
}

// Signature represents a parsed signature value
type Signature struct {
	Version   string
	Signature string
}

// ParseSignature parses a signature string in the format: v1,<base64_signature>
func ParseSignature(sig string) (Signature, error) {
	parts := strings.SplitN(sig, ",", 2)
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("invalid signature format, expected 'version,signature'")
	}

	return Signature{
		Version:   parts[0],
		Signature: parts[1],
	}, nil
}

// ParseSignatureHeader parses the webhook-signature header, which may carry
// space-delimited signatures: "v1,sig1 v1,sig2"
func ParseSignatureHeader(header string) ([]Signature, error) {
	if header == "" {
		return nil, fmt.Errorf("signature header is empty")
	}

	parts := strings.Split(header, " ")
	signatures := make([]Signature, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		sig, err := ParseSignature(part)
		if err != nil {
			return nil, fmt.Errorf("parsing signature '%s': %w", part, err)
		}

		signatures = append(signatures, sig)
	}

	if len(signatures) == 0 {
		return nil, fmt.Errorf("no valid signatures found in header")
	}

	return signatures, nil
}

// Sign creates the v1 signature for the given message. Exposed so tests and
// internal re-delivery tooling can produce valid headers.
func Sign(secret Secret, msgID string, timestamp time.Time, payload []byte) (Signature, error) {
	if strings.Contains(msgID, ".") {
		return Signature{}, fmt.Errorf("message ID must not contain '.'")
	}

	timestampStr := strconv.FormatInt(timestamp.Unix(), 10)
	signedContent := fmt.Sprintf("%s.%s.%s", msgID, timestampStr, payload)

	mac := hmac.New(sha256.New, secret.raw)
	mac.Write([]byte(signedContent))

	return Signature{
		Version:   SignatureVersion,
		Signature: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	}, nil
}

// Verify checks one signature using constant-time comparison
func Verify(secret Secret, msgID string, timestamp time.Time, payload []byte, expected Signature) (bool, error) {
	if expected.Version != SignatureVersion {
		return false, fmt.Errorf("unsupported signature version: %s", expected.Version)
	}

	calculated, err := Sign(secret, msgID, timestamp, payload)
	if err != nil {
		return false, fmt.Errorf("calculating signature: %w", err)
	}

	expectedRaw, err := base64.StdEncoding.DecodeString(expected.Signature)
	if err != nil {
		return false, fmt.Errorf("decoding expected signature: %w", err)
	}

	calculatedRaw, err := base64.StdEncoding.DecodeString(calculated.Signature)
	if err != nil {
		return false, fmt.Errorf("decoding calculated signature: %w", err)
	}

	return subtle.ConstantTimeCompare(expectedRaw, calculatedRaw) == 1, nil
}

/* Verifier checks inbound deliveries against a set of accepted secrets
 * and a timestamp tolerance window
 */
type Verifier struct {
	secrets   []Secret
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a verifier over the given secrets
func NewVerifier(secrets []Secret, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{
		secrets:   secrets,
		tolerance: tolerance,
		now:       time.Now,
	}
}

/* VerifyRequest validates a delivery from its signature header parts
 * Any accepted secret matching any presented signature passes, which keeps
 * deliveries flowing while a secret rotation is in progress
 */
func (v *Verifier) VerifyRequest(msgID, timestampHeader, signatureHeader string, payload []byte) error {
	if msgID == "" {
		return fmt.Errorf("webhook id header is empty")
	}

	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing timestamp header: %w", err)
	}
	timestamp := time.Unix(ts, 0)

	age := v.now().Sub(timestamp)
	if age > v.tolerance || age < -v.tolerance {
		return fmt.Errorf("timestamp outside tolerance window")
	}

	signatures, err := ParseSignatureHeader(signatureHeader)
	if err != nil {
		return fmt.Errorf("parsing signature header: %w", err)
	}

	for _, sig := range signatures {
		for _, secret := range v.secrets {
			valid, err := Verify(secret, msgID, timestamp, payload, sig)
			if err != nil {
				continue
			}
			if valid {
				return nil
			}
		}
	}

	return fmt.Errorf("no signature matched")
}
