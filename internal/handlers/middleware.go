package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"libhub/internal/models"
)

const userKey = "libhub.user"

// authenticate loads the caller from a Bearer token when one is sent.
// Requests without a token continue anonymously; a bad token is rejected.
func (h *Handler) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.Next()
		return
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed Authorization header"})
		return
	}
	claims, err := h.tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	id, _ := claims.UserID()

	user, err := h.accounts.GetUser(c.Request.Context(), id)
	if err != nil || !user.IsActive {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account is unknown or inactive"})
		return
	}
	c.Set(userKey, user)
	c.Next()
}

// currentUser returns nil for anonymous requests.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func requireAuth(c *gin.Context) {
	if currentUser(c) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Next()
}

func requireStaff(c *gin.Context) {
	user := currentUser(c)
	switch {
	case user == nil:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case !user.IsStaff:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff access required"})
	default:
		c.Next()
	}
}

// client is one IP's token bucket.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimit throttles each client IP with its own token bucket. Entries idle
// for three minutes are dropped, checked at most once a minute.
func rateLimit(perSecond float64, burst int) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		clients   = make(map[string]*client)
		lastSweep = time.Now()
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > time.Minute {
			for key, cl := range clients {
				if now.Sub(cl.lastSeen) > 3*time.Minute {
					delete(clients, key)
				}
			}
			lastSweep = now
		}

		cl, found := clients[ip]
		if !found {
			cl = &client{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
			clients[ip] = cl
		}
		cl.lastSeen = now
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
