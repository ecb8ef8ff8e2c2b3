package tokens

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gestiopro/gestiohub.go/lib/responses"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
)

type jwtCustomClaims struct {
	EntrepriseID int64 `json:"entreprise_id"`

	jwt.StandardClaims
}

// GenerateAccessToken signs a token scoped to one entreprise.
func GenerateAccessToken(secret []byte, expiryInSeconds int, entrepriseID int64) (string, error) {
	claims := &jwtCustomClaims{
		EntrepriseID: entrepriseID,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Second * time.Duration(expiryInSeconds)).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	t, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return t, nil
}

// Middleware verifies the bearer token and stores the entreprise of the
// caller under "EntrepriseID" in the echo context.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, responses.BadAuthError)
			}
			entrepriseID, err := parseEntrepriseID(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				c.Logger().Debug(err)
				return echo.NewHTTPError(http.StatusUnauthorized, responses.BadAuthError)
			}
			c.Set("EntrepriseID", entrepriseID)
			return next(c)
		}
	}
}

func parseEntrepriseID(secret []byte, raw string) (int64, error) {
	claims := &jwtCustomClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}
	if claims.EntrepriseID <= 0 {
		return 0, fmt.Errorf("token without entreprise_id claim")
	}
	return claims.EntrepriseID, nil
}
