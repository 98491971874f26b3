package sslcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyData(t *testing.T) {
	k := classify(CERT, "data:-----BEGIN CERTIFICATE-----", "/etc/ssl")
	require.Equal(t, KindData, k.Kind)
	require.Equal(t, []byte("data:-----BEGIN CERTIFICATE-----"), k.Bytes)
}

func TestClassifyDataOnlyForCertAndPKey(t *testing.T) {
	k := classify(CRL, "data:whatever", "/etc/ssl")
	require.Equal(t, KindPath, k.Kind, "CRL has no data: special-case, falls through to PATH")
}

func TestClassifyEngine(t *testing.T) {
	k := classify(PKEY, "engine:hsm1:mykey", "/etc/ssl")
	require.Equal(t, KindEngine, k.Kind)
}

func TestClassifyEngineOnlyForPKey(t *testing.T) {
	k := classify(CERT, "engine:hsm1:mykey", "/etc/ssl")
	require.Equal(t, KindPath, k.Kind)
}

func TestClassifyPathRelative(t *testing.T) {
	k := classify(CERT, "cert.pem", "/etc/ssl")
	require.Equal(t, KindPath, k.Kind)
	require.Equal(t, "/etc/ssl/cert.pem", string(k.Bytes))
}

func TestClassifyPathAbsolute(t *testing.T) {
	k := classify(CERT, "/var/certs/cert.pem", "/etc/ssl")
	require.Equal(t, KindPath, k.Kind)
	require.Equal(t, "/var/certs/cert.pem", string(k.Bytes))
}

func TestClassifyHashDeterministic(t *testing.T) {
	a := classify(CERT, "cert.pem", "/etc/ssl")
	b := classify(CERT, "cert.pem", "/etc/ssl")
	require.Equal(t, a.Hash, b.Hash)

	c := classify(CERT, "other.pem", "/etc/ssl")
	require.NotEqual(t, a.Hash, c.Hash)
}

func TestBytesLessLexicographicPrefixFirst(t *testing.T) {
	require.True(t, bytesLess([]byte("ab"), []byte("abc")))
	require.False(t, bytesLess([]byte("abc"), []byte("ab")))
	require.True(t, bytesLess([]byte("aac"), []byte("abc")))
	require.False(t, bytesLess([]byte("abc"), []byte("abc")))
}
