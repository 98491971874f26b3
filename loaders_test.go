package sslcache

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/sslcache/sslerr"
)

func TestCreateCertRequiresAtLeastOneCertificate(t *testing.T) {
	l := &Loaders{}
	_, err := l.createCert(Key{Kind: KindData, Bytes: []byte("data:not pem")})
	require.Error(t, err)
	require.ErrorIs(t, err, sslerr.ErrParse)
}

func TestCreateCAFailsOnEmptyChain(t *testing.T) {
	l := &Loaders{}
	_, err := l.createCA(Key{Kind: KindData, Bytes: []byte("data:")})
	require.Error(t, err)
	require.ErrorIs(t, err, sslerr.ErrEmpty)
}

func TestCreateCertChainMultipleCertificates(t *testing.T) {
	l := &Loaders{}
	chainPEM := genCertChainPEM(t, 3)
	key := Key{Kind: KindData, Bytes: append([]byte("data:"), chainPEM...)}

	obj, err := l.createCert(key)
	require.NoError(t, err)

	chain := obj.(*CertChain)
	require.Len(t, chain.Certificates(), 3)
}

func TestCreateCRLEmptyIsError(t *testing.T) {
	l := &Loaders{}
	_, err := l.createCRL(Key{Kind: KindData, Bytes: []byte("data:not a crl")})
	require.Error(t, err)
	require.ErrorIs(t, err, sslerr.ErrEmpty)
}

func TestCreateCRLChain(t *testing.T) {
	l := &Loaders{}
	certPEM, issuerKey := genCert(t, "issuer")
	crlPEM := genCRLPEM(t, certDER(t, certPEM), issuerKey)

	obj, err := l.createCRL(Key{Kind: KindData, Bytes: append([]byte("data:"), crlPEM...)})
	require.NoError(t, err)
	require.Len(t, obj.(*CRLChain).Lists(), 1)
}

func TestCreateEngineKeyMissingColonIsBadSyntax(t *testing.T) {
	l := &Loaders{}
	_, err := l.createEngineKey(Key{Bytes: []byte("engine:hsm1-no-colon")})
	require.Error(t, err)
	require.ErrorIs(t, err, sslerr.ErrBadSyntax)
}

func TestCreateEngineKeyUnknownEngine(t *testing.T) {
	l := &Loaders{}
	_, err := l.createEngineKey(Key{Bytes: []byte("engine:hsm1:mykey")})
	require.Error(t, err)
	require.ErrorIs(t, err, sslerr.ErrEngine)
}

func TestCreatePKeyNoPassword(t *testing.T) {
	l := &Loaders{}
	keyPEM := genKeyPEM(t)
	obj, err := l.createPKey(Key{Kind: KindData, Bytes: append([]byte("data:"), keyPEM...)}, nil)
	require.NoError(t, err)
	require.NotNil(t, obj.(*PrivateKey).Signer())
}

// TestCreatePKeyPasswordRetry is scenario 2 from the testable-properties
// list: an encrypted key fails the first password and succeeds on the
// second, without retaining any cache entry (the caller here calls
// createPKey directly, bypassing the cache layer entirely, exactly as
// ConfigCache.Fetch does for a non-empty password list).
func TestCreatePKeyPasswordRetry(t *testing.T) {
	l := &Loaders{}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	block, err := x509.EncryptPEMBlock(rand.Reader, "EC PRIVATE KEY", der, []byte("right"), x509.PEMCipherAES256) //nolint:staticcheck
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(block)

	obj, err := l.createPKey(Key{Kind: KindData, Bytes: append([]byte("data:"), keyPEM...)}, []string{"wrong", "right"})
	require.NoError(t, err)
	require.NotNil(t, obj.(*PrivateKey).Signer())
}

func TestCreatePKeyAllPasswordsWrong(t *testing.T) {
	l := &Loaders{}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	block, err := x509.EncryptPEMBlock(rand.Reader, "EC PRIVATE KEY", der, []byte("right"), x509.PEMCipherAES256) //nolint:staticcheck
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(block)

	_, err = l.createPKey(Key{Kind: KindData, Bytes: append([]byte("data:"), keyPEM...)}, []string{"wrong1", "wrong2"})
	require.Error(t, err)
	require.True(t, errors.Is(err, sslerr.ErrParse))
}
