package sslcache

import (
	"crypto"
	"crypto/x509"
	"sync/atomic"
)

// object is the internal refcounted payload a cache entry owns. ref
// produces an independent reference (bumping the shared count); free
// releases the caller's own reference. The cache never calls free on an
// object it has already handed out via ref — that handle's release is the
// caller's to manage.
type object interface {
	ref() object
	free()
}

// Handle is a caller-owned reference obtained from Fetch. The caller must
// call Release exactly once; failing to do so leaks a reference on the
// underlying object (which, unlike the C library this design is modeled
// on, is still garbage collected — but the refcount invariants this cache
// guarantees depend on Release being called honestly).
type Handle interface {
	Release()
}

// certRef is one certificate's independent reference count, shared by
// every CertChain handle that was produced by ref()-ing the same chain.
type certRef struct {
	cert *x509.Certificate
	refs atomic.Int32
}

// CertChain is the parsed-object payload for the CERT and CA families: an
// ordered sequence of certificates, leaf first, each independently
// reference counted the way a stack of X509 objects is in the library
// this cache's design is modeled on.
type CertChain struct {
	certs []*certRef
}

func newCertChain(certs []*x509.Certificate) *CertChain {
	refs := make([]*certRef, len(certs))
	for i, c := range certs {
		r := &certRef{cert: c}
		r.refs.Store(1)
		refs[i] = r
	}
	return &CertChain{certs: refs}
}

// ref duplicates the container shell and bumps every element's reference
// count by one.
func (c *CertChain) ref() object {
	for _, r := range c.certs {
		r.refs.Add(1)
	}
	return &CertChain{certs: c.certs}
}

// free releases one reference from every certificate in the chain.
func (c *CertChain) free() {
	for _, r := range c.certs {
		r.refs.Add(-1)
	}
}

// Release implements Handle.
func (c *CertChain) Release() { c.free() }

// Certificates returns the chain's certificates, leaf first for CERT,
// unordered trust anchors for CA.
func (c *CertChain) Certificates() []*x509.Certificate {
	out := make([]*x509.Certificate, len(c.certs))
	for i, r := range c.certs {
		out[i] = r.cert
	}
	return out
}

// refCount reports the current reference count of the chain's first
// element. Used only by the invariant property tests; not part of the
// cache's operational surface.
func (c *CertChain) refCount() int32 {
	if len(c.certs) == 0 {
		return 0
	}
	return c.certs[0].refs.Load()
}

// crlRef is one revocation list's independent reference count.
type crlRef struct {
	crl  *x509.RevocationList
	refs atomic.Int32
}

// CRLChain is the parsed-object payload for the CRL family: a sequence of
// one or more revocation lists.
type CRLChain struct {
	lists []*crlRef
}

func newCRLChain(crls []*x509.RevocationList) *CRLChain {
	refs := make([]*crlRef, len(crls))
	for i, l := range crls {
		r := &crlRef{crl: l}
		r.refs.Store(1)
		refs[i] = r
	}
	return &CRLChain{lists: refs}
}

func (c *CRLChain) ref() object {
	for _, r := range c.lists {
		r.refs.Add(1)
	}
	return &CRLChain{lists: c.lists}
}

func (c *CRLChain) free() {
	for _, r := range c.lists {
		r.refs.Add(-1)
	}
}

// Release implements Handle.
func (c *CRLChain) Release() { c.free() }

// Lists returns the chain's revocation lists.
func (c *CRLChain) Lists() []*x509.RevocationList {
	out := make([]*x509.RevocationList, len(c.lists))
	for i, r := range c.lists {
		out[i] = r.crl
	}
	return out
}

func (c *CRLChain) refCount() int32 {
	if len(c.lists) == 0 {
		return 0
	}
	return c.lists[0].refs.Load()
}

// PrivateKey is the parsed-object payload for the PKEY family, whether
// sourced from PEM bytes or a hardware engine.
type PrivateKey struct {
	signer crypto.Signer
	refs   *atomic.Int32
}

func newPrivateKey(signer crypto.Signer) *PrivateKey {
	n := new(atomic.Int32)
	n.Store(1)
	return &PrivateKey{signer: signer, refs: n}
}

func (p *PrivateKey) ref() object {
	p.refs.Add(1)
	return &PrivateKey{signer: p.signer, refs: p.refs}
}

func (p *PrivateKey) free() {
	p.refs.Add(-1)
}

// Release implements Handle.
func (p *PrivateKey) Release() { p.free() }

// Signer returns the underlying key.
func (p *PrivateKey) Signer() crypto.Signer { return p.signer }

func (p *PrivateKey) refCount() int32 { return p.refs.Load() }
