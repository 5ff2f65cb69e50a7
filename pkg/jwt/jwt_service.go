package jwt

import (
	"errors"
	"fmt"
	"time"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/internal/utils"

	"github.com/golang-jwt/jwt/v4"
)

const DefaultTokenTTL = 120 * time.Minute

type (
	JWTService interface {
		GenerateToken(operator string, role string, ttl time.Duration) (string, error)
		ValidateToken(token string) (*jwt.Token, error)
		GetOperatorByToken(token string) (string, string, error)
	}

	jwtOperatorClaim struct {
		Operator string `json:"operator"`
		Role     string `json:"role"`
		jwt.RegisteredClaims
	}

	jwtService struct {
		secretKey string
		issuer    string
	}
)

func NewJWTService() JWTService {
	return newJWTService(utils.GetConfig("JWT_SECRET"))
}

func newJWTService(secretKey string) *jwtService {
	return &jwtService{
		secretKey: secretKey,
		issuer:    "LABEL-SCANNER",
	}
}

func (j *jwtService) GenerateToken(operator string, role string, ttl time.Duration) (string, error) {
	if j.secretKey == "" {
		return "", errors.New("JWT_SECRET is not configured")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	claims := jwtOperatorClaim{
		operator,
		role,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

func (j *jwtService) parseToken(t_ *jwt.Token) (any, error) {
	if _, ok := t_.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t_.Header["alg"])
	}
	return []byte(j.secretKey), nil
}

func (j *jwtService) ValidateToken(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &jwtOperatorClaim{}, j.parseToken)
}

func (j *jwtService) GetOperatorByToken(token string) (string, string, error) {
	t_Token, err := j.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", domain.ErrTokenExpired
		}
		return "", "", domain.ErrTokenInvalid
	}
	if !t_Token.Valid {
		return "", "", domain.ErrTokenInvalid
	}

	claims := t_Token.Claims.(*jwtOperatorClaim)
	if claims.Issuer != j.issuer {
		return "", "", domain.ErrTokenInvalid
	}
	return claims.Operator, claims.Role, nil
}
