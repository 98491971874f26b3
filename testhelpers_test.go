package sslcache

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// genCert returns a fresh self-signed certificate PEM-encoded, along with
// the key that signed it (needed to build CRLs against the same issuer).
func genCert(t *testing.T, commonName string) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature | x509.KeyUsageCRLSign,
		IsCA:         true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return pemBytes, key
}

// genCertChainPEM concatenates n self-signed certificates into one PEM
// buffer, simulating a multi-certificate chain file.
func genCertChainPEM(t *testing.T, n int) []byte {
	t.Helper()
	var out []byte
	for i := 0; i < n; i++ {
		certPEM, _ := genCert(t, "leaf")
		out = append(out, certPEM...)
	}
	return out
}

// genCRLPEM returns a PEM-encoded CRL signed by key/issuer.
func genCRLPEM(t *testing.T, issuerCertDER []byte, key *ecdsa.PrivateKey) []byte {
	t.Helper()

	issuer, err := x509.ParseCertificate(issuerCertDER)
	require.NoError(t, err)

	tmpl := &x509.RevocationList{
		Number:     big.NewInt(1),
		ThisUpdate: time.Now(),
		NextUpdate: time.Now().Add(time.Hour),
	}
	der, err := x509.CreateRevocationList(rand.Reader, tmpl, issuer, key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "X509 CRL", Bytes: der})
}

func certDER(t *testing.T, certPEM []byte) []byte {
	t.Helper()
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	return block.Bytes
}

// genKeyPEM returns an unencrypted PKCS8 PEM-encoded EC private key.
func genKeyPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}
