package sslcache

// Family identifies which object class a key belongs to. CERT and CA both
// yield certificate chains but differ in how the chain is validated; PKEY
// and CRL are their own shapes.
type Family uint8

const (
	CERT Family = iota
	PKEY
	CRL
	CA
)

func (f Family) String() string {
	switch f {
	case CERT:
		return "cert"
	case PKEY:
		return "pkey"
	case CRL:
		return "crl"
	case CA:
		return "ca"
	default:
		return "unknown"
	}
}
