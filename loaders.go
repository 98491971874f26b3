package sslcache

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/wolfeidau/sslcache/engine"
	"github.com/wolfeidau/sslcache/sslerr"
)

// Loaders bundles everything the per-family create functions need: where
// to resolve bare paths against, the engine registry for ENGINE-kind PKEY
// references, and a logger for the warning emitted when a password is
// truncated.
type Loaders struct {
	// PathPrefix is the directory bare (non-absolute) filesystem
	// references are resolved against.
	PathPrefix string

	// Engines resolves ENGINE-kind PKEY references. May be nil if no
	// engine keys are configured; any engine: reference then fails.
	Engines *engine.Registry

	// Logger receives debug/warn notices. Defaults to slog.Default().
	Logger *slog.Logger
}

func (l *Loaders) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// create dispatches to the family-specific loader. This is the tagged
// dispatch the design favors over an inheritance hierarchy: a plain switch
// over the small Family enum, not a registry of interfaces, because the
// four create functions are not substitutable for one another.
func (l *Loaders) create(family Family, key Key, loaderData any) (object, error) {
	switch family {
	case CERT:
		return l.createCert(key)
	case CA:
		return l.createCA(key)
	case CRL:
		return l.createCRL(key)
	case PKEY:
		return l.createPKey(key, loaderData)
	default:
		return nil, fmt.Errorf("unknown family %v", family)
	}
}

// readSource is the opened byte source a PEM loader reads from: either the
// inline data carried in the key (DATA kind, prefix already stripped) or
// the full contents of the backing file (PATH kind).
type readSource struct {
	data []byte
}

func openSource(key Key) (*readSource, error) {
	switch key.Kind {
	case KindData:
		return &readSource{data: bytes.TrimPrefix(key.Bytes, []byte(dataPrefix))}, nil
	case KindPath:
		data, err := os.ReadFile(string(key.Bytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", sslerr.ErrOpen, key.Bytes, err)
		}
		return &readSource{data: data}, nil
	default:
		return nil, fmt.Errorf("%w: key kind %v has no byte source", sslerr.ErrOpen, key.Kind)
	}
}

// readCertificates decodes every CERTIFICATE PEM block in data, in order.
// Reaching the end of input with zero blocks decoded yet is not itself an
// error here — CERT and CA both reject an empty result, each with its own
// error, at the call site.
func readCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return certs, fmt.Errorf("%w: certificate %d: %v", sslerr.ErrParse, len(certs), err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

func (l *Loaders) createCert(key Key) (object, error) {
	src, err := openSource(key)
	if err != nil {
		return nil, err
	}
	certs, err := readCertificates(src.data)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no leaf certificate", sslerr.ErrParse)
	}
	return newCertChain(certs), nil
}

func (l *Loaders) createCA(key Key) (object, error) {
	src, err := openSource(key)
	if err != nil {
		return nil, err
	}
	certs, err := readCertificates(src.data)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: trust chain", sslerr.ErrEmpty)
	}
	return newCertChain(certs), nil
}

func readCRLs(data []byte) ([]*x509.RevocationList, error) {
	var lists []*x509.RevocationList
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "X509 CRL" {
			continue
		}
		crl, err := x509.ParseRevocationList(block.Bytes)
		if err != nil {
			return lists, fmt.Errorf("%w: crl %d: %v", sslerr.ErrParse, len(lists), err)
		}
		lists = append(lists, crl)
	}
	return lists, nil
}

func (l *Loaders) createCRL(key Key) (object, error) {
	src, err := openSource(key)
	if err != nil {
		return nil, err
	}
	lists, err := readCRLs(src.data)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, fmt.Errorf("%w: crl chain", sslerr.ErrEmpty)
	}
	return newCRLChain(lists), nil
}

// maxPasswordBytes mirrors the source's buf_size cap on the password
// callback: a password longer than this is truncated, with a warning,
// rather than rejected outright.
const maxPasswordBytes = 1024

func (l *Loaders) createPKey(key Key, loaderData any) (object, error) {
	if key.Kind == KindEngine {
		return l.createEngineKey(key)
	}

	passwords, _ := loaderData.([]string)
	src, err := openSource(key)
	if err != nil {
		return nil, err
	}

	if len(passwords) == 0 {
		signer, err := parsePrivateKey(src.data, nil)
		if err != nil {
			return nil, err
		}
		return newPrivateKey(signer), nil
	}

	var lastErr error
	for _, pw := range passwords {
		candidate := []byte(pw)
		if len(candidate) > maxPasswordBytes {
			l.logger().Warn("ssl cache pkey password truncated", "len", len(candidate), "max", maxPasswordBytes)
			candidate = candidate[:maxPasswordBytes]
		}
		signer, err := parsePrivateKey(src.data, candidate)
		if err == nil {
			return newPrivateKey(signer), nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: private key: %v", sslerr.ErrParse, lastErr)
}

func (l *Loaders) createEngineKey(key Key) (object, error) {
	ref := string(bytes.TrimPrefix(key.Bytes, []byte(enginePrefix)))
	idx := strings.IndexByte(ref, ':')
	if idx < 0 {
		return nil, fmt.Errorf("%w: engine reference %q missing key id", sslerr.ErrBadSyntax, ref)
	}
	engineID, keyID := ref[:idx], ref[idx+1:]

	if l.Engines == nil {
		return nil, fmt.Errorf("%w: no engines configured", sslerr.ErrEngine)
	}
	provider, ok := l.Engines.Lookup(engineID)
	if !ok {
		return nil, fmt.Errorf("%w: engine %q not found", sslerr.ErrEngine, engineID)
	}
	signer, err := provider.LoadPrivateKey(keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: engine %q key %q: %v", sslerr.ErrEngine, engineID, keyID, err)
	}
	return newPrivateKey(signer), nil
}

// parsePrivateKey decodes the first PEM block in data as a private key.
// If password is non-nil, a legacy-encrypted block is decrypted with it
// first; callers are expected to retry with the next password in their
// list on failure, since a wrong password is observably identical to a
// parse failure at this layer.
func parsePrivateKey(data []byte, password []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: private key: no PEM block found", sslerr.ErrParse)
	}

	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // no unencrypted-PEM alternative exists for legacy keys
		if password == nil {
			return nil, fmt.Errorf("%w: private key is encrypted, no password supplied", sslerr.ErrParse)
		}
		decrypted, err := x509.DecryptPEMBlock(block, password) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("%w: private key: %v", sslerr.ErrParse, err)
		}
		der = decrypted
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("%w: private key: PKCS8 key type does not implement Signer", sslerr.ErrParse)
		}
		return signer, nil
	}
	return nil, fmt.Errorf("%w: private key: unrecognized key format", sslerr.ErrParse)
}

var (
	_ crypto.Signer = (*rsa.PrivateKey)(nil)
	_ crypto.Signer = (*ecdsa.PrivateKey)(nil)
)
