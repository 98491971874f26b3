package engine

import (
	"crypto"
	"fmt"
	"io"
	"sync"

	"github.com/miekg/pkcs11"
)

// PKCS11Provider loads private key handles out of a PKCS#11 token, keyed by
// the CKA_LABEL attribute. It is the reference Provider implementation for
// hardware/HSM-backed keys; other Provider implementations are expected to
// wrap other key stores the same way.
type PKCS11Provider struct {
	ctx     *pkcs11.Ctx
	session pkcs11.SessionHandle

	mu sync.Mutex
}

// OpenPKCS11Provider loads the PKCS#11 module at modulePath, opens a
// session against the first slot with a token present, and logs in with pin
// if non-empty.
func OpenPKCS11Provider(modulePath, pin string) (*PKCS11Provider, error) {
	ctx := pkcs11.New(modulePath)
	if ctx == nil {
		return nil, fmt.Errorf("loading pkcs11 module %q", modulePath)
	}
	if err := ctx.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing pkcs11 module: %w", err)
	}

	slots, err := ctx.GetSlotList(true)
	if err != nil {
		ctx.Finalize()
		return nil, fmt.Errorf("listing pkcs11 slots: %w", err)
	}
	if len(slots) == 0 {
		ctx.Finalize()
		return nil, fmt.Errorf("no pkcs11 slot with a token present")
	}

	session, err := ctx.OpenSession(slots[0], pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		ctx.Finalize()
		return nil, fmt.Errorf("opening pkcs11 session: %w", err)
	}

	if pin != "" {
		if err := ctx.Login(session, pkcs11.CKU_USER, pin); err != nil {
			ctx.CloseSession(session)
			ctx.Finalize()
			return nil, fmt.Errorf("logging into pkcs11 token: %w", err)
		}
	}

	return &PKCS11Provider{ctx: ctx, session: session}, nil
}

// Close logs out, closes the session and finalizes the module.
func (p *PKCS11Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.ctx.Logout(p.session)
	_ = p.ctx.CloseSession(p.session)
	return p.ctx.Finalize()
}

// LoadPrivateKey finds the private key object whose CKA_LABEL equals keyID
// and returns a crypto.Signer backed by C_SignInit/C_Sign.
func (p *PKCS11Provider) LoadPrivateKey(keyID string) (crypto.Signer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tmpl := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, keyID),
	}
	if err := p.ctx.FindObjectsInit(p.session, tmpl); err != nil {
		return nil, fmt.Errorf("finding key %q: %w", keyID, err)
	}
	handles, _, err := p.ctx.FindObjects(p.session, 1)
	_ = p.ctx.FindObjectsFinal(p.session)
	if err != nil {
		return nil, fmt.Errorf("finding key %q: %w", keyID, err)
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("key %q not found on token", keyID)
	}

	pub, err := p.findPublicKey(keyID)
	if err != nil {
		return nil, err
	}

	return &pkcs11Signer{provider: p, handle: handles[0], public: pub}, nil
}

func (p *PKCS11Provider) findPublicKey(keyID string) (crypto.PublicKey, error) {
	tmpl := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PUBLIC_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, keyID),
	}
	if err := p.ctx.FindObjectsInit(p.session, tmpl); err != nil {
		return nil, fmt.Errorf("finding public half of key %q: %w", keyID, err)
	}
	handles, _, err := p.ctx.FindObjects(p.session, 1)
	_ = p.ctx.FindObjectsFinal(p.session)
	if err != nil || len(handles) == 0 {
		// A token is not required to expose the public half; the
		// caller only needs Sign to work, so leave Public() nil.
		return nil, nil //nolint:nilerr
	}
	return pkcs11PublicKeyStub{handle: handles[0]}, nil
}

// pkcs11Signer adapts a PKCS#11 private key object handle to crypto.Signer.
type pkcs11Signer struct {
	provider *PKCS11Provider
	handle   pkcs11.ObjectHandle
	public   crypto.PublicKey
}

func (s *pkcs11Signer) Public() crypto.PublicKey {
	return s.public
}

func (s *pkcs11Signer) Sign(_ io.Reader, digest []byte, _ crypto.SignerOpts) ([]byte, error) {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()

	mech := []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_ECDSA, nil)}
	if err := s.provider.ctx.SignInit(s.provider.session, mech, s.handle); err != nil {
		return nil, fmt.Errorf("pkcs11 sign init: %w", err)
	}
	sig, err := s.provider.ctx.Sign(s.provider.session, digest)
	if err != nil {
		return nil, fmt.Errorf("pkcs11 sign: %w", err)
	}
	return sig, nil
}

// pkcs11PublicKeyStub carries the object handle for a public key found on
// the token; it exists purely so PKCS11Provider can populate Signer.Public()
// without decoding the key material, which is outside the scope of this
// cache's concerns.
type pkcs11PublicKeyStub struct {
	handle pkcs11.ObjectHandle
}
