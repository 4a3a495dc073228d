package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/checkin-engine/internal/platform/ctxutil"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

const (
	RoleAdmin  = "admin"
	RoleCoach  = "coach"
	RoleClient = "client"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type JWTClaims struct {
	Role    string `json:"role"`
	CoachID string `json:"coach_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthService verifies bearer tokens issued by the account service. It can
// also mint tokens for operators through checkinctl.
type AuthService struct {
	log       *logger.Logger
	clock     clock.Clock
	secret    []byte
	accessTTL time.Duration
}

func NewAuthService(baseLog *logger.Logger, clk clock.Clock, jwtSecretKey string, accessTTL time.Duration) *AuthService {
	if clk == nil {
		clk = clock.New()
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &AuthService{
		log:       baseLog.With("service", "AuthService"),
		clock:     clk,
		secret:    []byte(jwtSecretKey),
		accessTTL: accessTTL,
	}
}

func (as *AuthService) IssueToken(userID uuid.UUID, role string, coachID *uuid.UUID) (string, error) {
	now := as.clock.Now()
	claims := JWTClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	if coachID != nil {
		claims.CoachID = coachID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(as.secret)
}

// SetContextFromToken parses tokenString and stores the caller on ctx. An
// empty token leaves ctx untouched.
func (as *AuthService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(as.clock.Now),
	)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
	}
	if claims.CoachID != "" {
		coachID, err := uuid.Parse(claims.CoachID)
		if err != nil {
			return ctx, fmt.Errorf("%w: bad coach id", ErrInvalidToken)
		}
		rd.CoachID = &coachID
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}
