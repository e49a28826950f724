package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNonValidToken    = errors.New("token did not pass validation")
	ErrInvalidClaimType = errors.New("invalid claim type")
)

var tokenSignatureAlg = jwt.SigningMethodHS256

// Audiences keep the two token families structurally distinct: a bearer
// credential can never pass as an RSVP capability token or vice versa.
const (
	AudienceAPI  = "api"
	AudienceRSVP = "rsvp"
)

// Principal is the authenticated caller, resolved once at the
// authentication boundary.
type Principal struct {
	UserID int64
	Email  string
	Role   string
}

// Claim for authenticated API access.
type PrincipalClaim struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (c *PrincipalClaim) Principal() Principal {
	return Principal{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

func NewPrincipalClaim(userID int64, email, role string, ttl time.Duration) PrincipalClaim {
	return PrincipalClaim{
		UserID:           userID,
		Email:            email,
		Role:             role,
		RegisteredClaims: newRegisteredClaims(AudienceAPI, ttl),
	}
}

// Claim for an RSVP capability link. Grants exactly one right: recording the
// named attendee's response on the named event.
type RSVPClaim struct {
	EventID int64  `json:"event_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

func NewRSVPClaim(eventID int64, email string, ttl time.Duration) RSVPClaim {
	return RSVPClaim{
		EventID:          eventID,
		Email:            email,
		RegisteredClaims: newRegisteredClaims(AudienceRSVP, ttl),
	}
}

func newRegisteredClaims(audience string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// Generic JWT token generation function
func Generate(secret string, claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(tokenSignatureAlg, claims)
	return t.SignedString([]byte(secret))
}

func decode[T jwt.Claims](secret string, tokenString string, claimsType T, audience string) (T, error) {
	var zero T

	parsedToken, err := jwt.ParseWithClaims(tokenString, claimsType, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}),
		jwt.WithAudience(audience),
	)

	if err != nil {
		return zero, err
	} else if parsedToken == nil || !parsedToken.Valid {
		return zero, ErrNonValidToken
	} else if claims, ok := parsedToken.Claims.(T); ok {
		return claims, nil
	}

	return zero, ErrInvalidClaimType
}

func DecodePrincipal(secret string, tokenString string) (*PrincipalClaim, error) {
	return decode(secret, tokenString, &PrincipalClaim{}, AudienceAPI)
}

func DecodeRSVP(secret string, tokenString string) (*RSVPClaim, error) {
	return decode(secret, tokenString, &RSVPClaim{}, AudienceRSVP)
}
