package license

import (
	"errors"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// The MAC algorithm is pinned: tokens are always HS256 and verification
// never negotiates, which closes the algorithm-downgrade class of attacks.
var allowedAlgorithms = []jose.SignatureAlgorithm{jose.HS256}

var errBadToken = errors.New("license: token signature invalid or malformed")

// Claims is the license token payload. tenant_id is the subject used for the
// license lookup.
type Claims struct {
	jwt.Claims
	TenantID string `json:"tenant_id"`
}

// Signer signs and verifies license tokens with a shared HMAC secret.
type Signer struct {
	secret []byte
	issuer string
}

func NewSigner(secret []byte, issuer string) *Signer {
	return &Signer{secret: secret, issuer: issuer}
}

// Sign issues a token for the tenant, valid until expiresAt.
func (s *Signer) Sign(tenantID string, now, expiresAt time.Time) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: s.secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	claims := Claims{
		Claims: jwt.Claims{
			Issuer:   s.issuer,
			Subject:  tenantID,
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(expiresAt),
		},
		TenantID: tenantID,
	}

	return jwt.Signed(signer).Claims(claims).Serialize()
}

// Verify checks the MAC and the token's own time bounds, returning the
// claims. Any parse, signature, or token-expiry failure collapses into
// errBadToken; license-level validity is the validator's concern.
func (s *Signer) Verify(raw string, now time.Time) (*Claims, error) {
	token, err := jwt.ParseSigned(raw, allowedAlgorithms)
	if err != nil {
		return nil, errBadToken
	}

	var claims Claims
	if err := token.Claims(s.secret, &claims); err != nil {
		return nil, errBadToken
	}

	if err := claims.Validate(jwt.Expected{Time: now}); err != nil {
		return nil, errBadToken
	}

	if claims.TenantID == "" {
		return nil, errBadToken
	}

	return &claims, nil
}
