package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenName  = "accessToken"
	RefreshTokenName = "refreshToken"
)

type Jwt struct {
	Secret         string
	CookieHttpOnly bool
	CookieSecure   bool
	AccessExpiry   time.Duration
	RefreshExpiry  time.Duration
}

type Option func(*Jwt)

func WithCookieHttpOnly(httpOnly bool) Option {
	return func(jwt *Jwt) {
		jwt.CookieHttpOnly = httpOnly
	}
}

func WithCookieSecure(secure bool) Option {
	return func(jwt *Jwt) {
		jwt.CookieSecure = secure
	}
}

func WithAccessExpiry(expiry time.Duration) Option {
	return func(jwt *Jwt) {
		jwt.AccessExpiry = expiry
	}
}

func WithRefreshExpiry(expiry time.Duration) Option {
	return func(jwt *Jwt) {
		jwt.RefreshExpiry = expiry
	}
}

func NewJwtServiceOptions(secret string, opts ...Option) *Jwt {
	jwtSvc := &Jwt{
		Secret:        secret,
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	}

	for _, opt := range opts {
		opt(jwtSvc)
	}

	return jwtSvc
}

// TokenUser is the custom claim payload embedded in session tokens. The
// custom role is reissued into fresh tokens after role selection so
// downstream requests carry updated claims.
type TokenUser struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email,omitempty"`
	CustomRole string `json:"custom_role,omitempty"`
}

type Claims struct {
	CustomClaims interface{} `json:"custom_claims,inline"`
	jwt.RegisteredClaims
}

type IdmToken struct {
	Token  string
	Expiry time.Time
}

type Token struct {
	AccessToken  string
	RefreshToken string
}

func (j Jwt) CreateTokenStr(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(j.Secret))
	if err != nil {
		slog.Error("Failed sign JWT Claim string!", "err", err)
		return "", err
	}
	return ss, nil
}

// CreateToken issues a fresh access/refresh token pair for the given user.
func (j Jwt) CreateToken(user TokenUser) (Token, error) {
	accessToken, err := j.CreateAccessToken(user)
	if err != nil {
		slog.Error("Failed create access token!", "err", err)
		return Token{}, err
	}
	refreshToken, err := j.CreateRefreshToken(user)
	if err != nil {
		slog.Error("Failed create refresh token!", "err", err)
		return Token{}, err
	}
	return Token{
		AccessToken:  accessToken.Token,
		RefreshToken: refreshToken.Token,
	}, nil
}

func (j Jwt) CreateAccessToken(claimData interface{}) (IdmToken, error) {
	claims := j.newClaims(claimData, j.AccessExpiry)
	accessToken, err := j.CreateTokenStr(claims)
	return IdmToken{Token: accessToken, Expiry: claims.ExpiresAt.Time}, err
}

func (j Jwt) CreateRefreshToken(claimData interface{}) (IdmToken, error) {
	claims := j.newClaims(claimData, j.RefreshExpiry)
	refreshToken, err := j.CreateTokenStr(claims)
	return IdmToken{Token: refreshToken, Expiry: claims.ExpiresAt.Time}, err
}

// CreateLogoutToken issues an already-expired token used to clear cookies.
func (j Jwt) CreateLogoutToken(claimData interface{}) (IdmToken, error) {
	claims := j.newClaims(claimData, -time.Minute)
	logoutToken, err := j.CreateTokenStr(claims)
	return IdmToken{Token: logoutToken, Expiry: claims.ExpiresAt.Time}, err
}

func (j Jwt) newClaims(claimData interface{}, expiry time.Duration) Claims {
	return Claims{
		claimData,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			NotBefore: jwt.NewNumericDate(time.Now().UTC().Add(-time.Minute * 5)),
			Issuer:    "mentor-idm",
			Subject:   "mentor-idm",
			ID:        uuid.New().String(),
			Audience:  []string{"public"},
		},
	}
}

func (j Jwt) ParseTokenStr(tokenStr string) (*jwt.Token, error) {
	signingKey := []byte(j.Secret)
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return signingKey, nil
	})
	if err != nil {
		slog.Error("Failed parse JWT string!", "err", err)
		return token, err
	}
	if !token.Valid {
		return token, errors.New("invalid token")
	}
	return token, nil
}

// SetTokenCookie writes a session token cookie on the response.
func (j Jwt) SetTokenCookie(w http.ResponseWriter, tokenName, tokenValue string, expire time.Time) {
	tokenCookie := &http.Cookie{
		Name:     tokenName,
		Path:     "/",
		Value:    tokenValue,
		Expires:  expire,
		HttpOnly: j.CookieHttpOnly,
		Secure:   j.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, tokenCookie)
}

// ClearTokenCookies expires both session cookies.
func (j Jwt) ClearTokenCookies(w http.ResponseWriter) {
	expired := time.Now().UTC().Add(-time.Hour)
	j.SetTokenCookie(w, AccessTokenName, "", expired)
	j.SetTokenCookie(w, RefreshTokenName, "", expired)
}
