package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"roombooking-service/internal/booking"
)

// CalendarTokenHeader carries the user's delegated calendar credential.
const CalendarTokenHeader = "X-Calendar-Token"

const principalKey = "principal"

// Claims are the JWT claims identifying a user.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator accepts HS256 JWTs signed with Secret or static bearer
// tokens mapped to a mailbox address.
type Authenticator struct {
	Secret       []byte
	StaticTokens map[string]string
}

// Middleware resolves the bearer token to a principal and stores it in the
// gin context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		p, ok := a.principal(parts[1])
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		p.AccessToken = strings.TrimSpace(c.GetHeader(CalendarTokenHeader))
		c.Set(principalKey, p)
		c.Next()
	}
}

func (a *Authenticator) principal(tokenStr string) (booking.Principal, bool) {
	// JWT path
	if len(a.Secret) > 0 {
		var claims Claims
		_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
			return a.Secret, nil
		}, jwt.WithLeeway(5*time.Second), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err == nil {
			email := claims.Email
			if email == "" {
				email = claims.Subject
			}
			if email != "" {
				return booking.Principal{Address: email, Name: claims.Name}, true
			}
		}
	}

	// static tokens
	if address, ok := a.StaticTokens[tokenStr]; ok {
		return booking.Principal{Address: address, Name: address}, true
	}
	return booking.Principal{}, false
}

// PrincipalFrom returns the principal set by the middleware.
func PrincipalFrom(c *gin.Context) booking.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return booking.Principal{}
	}
	p, _ := v.(booking.Principal)
	return p
}
