package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/requestcontext"
)

// Claims carries the acting user, their organization and role.
type Claims struct {
	OrganizationID string `json:"org_id"`
	Role           string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 access tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken signs a token for rc. The actor id is the subject.
func (s *JWTService) GenerateAccessToken(rc requestcontext.RequestContext, expiresIn time.Duration) (string, error) {
	if err := rc.Validate(); err != nil {
		return "", err
	}
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OrganizationID: rc.OrganizationID.String(),
		Role:           rc.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rc.ActorID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Authenticate validates tokenString and resolves it to a RequestContext.
func (s *JWTService) Authenticate(tokenString string) (requestcontext.RequestContext, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return requestcontext.RequestContext{}, err
	}
	actorID, err := id.ParseActorID(claims.Subject)
	if err != nil {
		return requestcontext.RequestContext{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	orgID, err := id.ParseOrganizationID(claims.OrganizationID)
	if err != nil {
		return requestcontext.RequestContext{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token organization")
	}
	return requestcontext.RequestContext{ActorID: actorID, OrganizationID: orgID, Role: claims.Role}, nil
}
