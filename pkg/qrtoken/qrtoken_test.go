package qrtoken

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func cardPayload() Payload {
	return Payload{
		Kind:       KindCard,
		CustomerID: "c-1",
		TenantID:   "t-1",
		QRID:       "qr-1",
		IssuedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cred, err := Encode(cardPayload(), secret, time.Hour)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)
	p, err := Decode(cred, secret, Options{Now: now})
	require.NoError(t, err)
	assert.Equal(t, "c-1", p.CustomerID)
	assert.Equal(t, "t-1", p.TenantID)
	assert.Equal(t, "qr-1", p.QRID)
	assert.Equal(t, now.Add(30*time.Minute).Unix(), p.ExpiresAt)
}

func TestDecodeInvalidFormat(t *testing.T) {
	for _, cred := range []string{
		"",
		"no-delimiter",
		"abc.",
		".abc",
		"a.b.c",
		"!!!.abc",
		encoding.EncodeToString([]byte("not json")) + "." + encoding.EncodeToString(sign([]byte(encoding.EncodeToString([]byte("not json"))), secret)),
	} {
		_, err := Decode(cred, secret, Options{})
		assert.ErrorIs(t, err, ErrInvalidFormat, "credential %q", cred)
	}
}

func TestDecodeRejectsEveryFlippedPayloadBit(t *testing.T) {
	cred, err := Encode(cardPayload(), secret, time.Hour)
	require.NoError(t, err)
	body, sig, _ := strings.Cut(cred, ".")
	raw, err := encoding.DecodeString(body)
	require.NoError(t, err)

	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= 1 << bit
			forged := encoding.EncodeToString(tampered) + "." + sig

			_, err := Decode(forged, secret, Options{})
			require.ErrorIs(t, err, ErrInvalidSignature, "byte %d bit %d", i, bit)
		}
	}
}

func TestDecodeWrongSecret(t *testing.T) {
	cred, err := Encode(cardPayload(), secret, time.Hour)
	require.NoError(t, err)

	_, err = Decode(cred, []byte("another-secret-another-secret-xx"), Options{})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecodeExpiry(t *testing.T) {
	cred, err := Encode(cardPayload(), secret, time.Minute)
	require.NoError(t, err)

	issued := time.Unix(cardPayload().IssuedAt, 0)
	_, err = Decode(cred, secret, Options{Now: issued.Add(time.Minute)})
	assert.NoError(t, err)

	_, err = Decode(cred, secret, Options{Now: issued.Add(time.Minute + time.Second)})
	assert.ErrorIs(t, err, ErrExpired)
}

func TestDecodeNoExpiryMode(t *testing.T) {
	cred, err := Encode(cardPayload(), secret, 0)
	require.NoError(t, err)

	_, err = Decode(cred, secret, Options{})
	assert.ErrorIs(t, err, ErrExpired)

	p, err := Decode(cred, secret, Options{AllowNoExpiry: true})
	require.NoError(t, err)
	assert.True(t, p.Expiry().IsZero())

	// 深链不允许不过期
	link := cardPayload()
	link.Kind = KindLink
	link.Nonce = "n-1"
	cred, err = Encode(link, secret, 0)
	require.NoError(t, err)
	_, err = Decode(cred, secret, Options{AllowNoExpiry: true})
	assert.ErrorIs(t, err, ErrExpired)
}

func TestDecodeWrongType(t *testing.T) {
	cred, err := Encode(cardPayload(), secret, time.Hour)
	require.NoError(t, err)

	now := time.Unix(cardPayload().IssuedAt, 0)
	_, err = Decode(cred, secret, Options{Now: now, Kinds: []Kind{KindLink}})
	assert.ErrorIs(t, err, ErrWrongType)

	other := cardPayload()
	other.Kind = "password_reset"
	cred, err = Encode(other, secret, time.Hour)
	require.NoError(t, err)
	_, err = Decode(cred, secret, Options{Now: now})
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestDecodeLinkRequiresNonce(t *testing.T) {
	link := cardPayload()
	link.Kind = KindLink
	cred, err := Encode(link, secret, time.Minute)
	require.NoError(t, err)

	_, err = Decode(cred, secret, Options{Now: time.Unix(link.IssuedAt, 0)})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	nonce, err := NewNonce()
	require.NoError(t, err)
	link.Nonce = nonce
	cred, err = Encode(link, secret, time.Minute)
	require.NoError(t, err)
	p, err := Decode(cred, secret, Options{Now: time.Unix(link.IssuedAt, 0)})
	require.NoError(t, err)
	assert.Equal(t, nonce, p.Nonce)
}

func TestEncodeEmptySecret(t *testing.T) {
	_, err := Encode(cardPayload(), nil, time.Minute)
	assert.Error(t, err)
}
