// Package gate authenticates and authorizes every inbound request:
// rate-limit, verify bearer token, resolve identity, audit the outcome.
// Every ambiguous or erroring condition denies; the gate never fails
// open.
package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"loyalty-platform/internal/audit"
	"loyalty-platform/internal/auth"
	"loyalty-platform/internal/directory"
	"loyalty-platform/internal/keyset"
	"loyalty-platform/internal/ratelimit"
	"loyalty-platform/internal/rbac"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	// Identity propagation headers for proxied downstream services.
	// In-process handlers must use auth.IdentityFrom instead.
	headerUserID          = "x-user-id"
	headerUserRole        = "x-user-role"
	headerUserShopID      = "x-user-shop-id"
	headerUserStaffRole   = "x-user-staff-role"
	headerUserPermissions = "x-user-permissions"

	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
)

// Config wires the gate's collaborators. Verifier, Limiter and Audit
// are required; Directory is optional (nil skips shop existence
// checks).
type Config struct {
	Verifier  *auth.Verifier
	Limiter   ratelimit.Limiter
	Audit     *audit.Service
	Directory directory.Directory
	Routes    RouteTable

	GeneralTier   ratelimit.Config
	SensitiveTier ratelimit.Config

	Logger *slog.Logger
}

type Gate struct {
	verifier  *auth.Verifier
	limiter   ratelimit.Limiter
	audit     *audit.Service
	directory directory.Directory
	routes    RouteTable
	general   ratelimit.Config
	sensitive ratelimit.Config
	log       *slog.Logger
}

func New(cfg Config) (*Gate, error) {
	if cfg.Verifier == nil {
		return nil, errors.New("gate: verifier is required")
	}
	if cfg.Limiter == nil {
		return nil, errors.New("gate: limiter is required")
	}
	if cfg.Audit == nil {
		return nil, errors.New("gate: audit service is required")
	}
	if cfg.GeneralTier.Limit <= 0 || cfg.GeneralTier.Window <= 0 {
		return nil, errors.New("gate: general rate-limit tier is required")
	}
	if cfg.SensitiveTier.Limit <= 0 || cfg.SensitiveTier.Window <= 0 {
		return nil, errors.New("gate: sensitive rate-limit tier is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gate{
		verifier:  cfg.Verifier,
		limiter:   cfg.Limiter,
		audit:     cfg.Audit,
		directory: cfg.Directory,
		routes:    cfg.Routes,
		general:   cfg.GeneralTier,
		sensitive: cfg.SensitiveTier,
		log:       cfg.Logger,
	}, nil
}

// Middleware runs the linear decision chain for each request:
// rate-limit, bearer extraction, verification, role authorization,
// admission. Each rejection is final for the request; there are no
// internal retries.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		rule, guarded := g.routes.Match(path)
		if !guarded {
			c.Next()
			return
		}

		ip := c.ClientIP()
		ctx := c.Request.Context()

		// An unexpected fault must still end in a rejection.
		defer func() {
			if r := recover(); r != nil {
				msg := fmt.Sprintf("panic: %v", r)
				g.log.Error("gate fault", "path", path, "ip", ip, "err", msg)
				g.audit.Fault(ctx, ip, path, msg)
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				}
				c.Abort()
			}
		}()

		// 1. Rate limit.
		tier := g.general
		tierName := "general"
		if rule.Sensitive {
			tier = g.sensitive
			tierName = "sensitive"
		}

		res, err := g.limiter.Check(ctx, tierName+":"+ip, tier)
		if err != nil {
			// A broken counter store degrades rate limiting only;
			// authentication below still applies in full.
			g.log.Warn("rate limiter unavailable", "err", err, "ip", ip)
		} else {
			setRateLimitHeaders(c, res)
			if !res.Allowed {
				g.audit.RateLimitExceeded(ctx, ip, path)
				retryAfter := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
				if retryAfter < 0 {
					retryAfter = 0
				}
				c.Header("Retry-After", strconv.Itoa(retryAfter))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error":   "Too many requests",
					"resetAt": res.ResetAt.UTC().Format(time.RFC3339),
				})
				return
			}
		}

		// 2. Bearer token extraction.
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			g.audit.AuthFailure(ctx, ip, path, "missing bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimPrefix(raw, bearerPrefix)

		// 3. Token verification. The audit trail gets the specific
		// error kind; the caller only a generic message.
		claims, err := g.verifier.Verify(ctx, token)
		if err != nil {
			g.audit.AuthFailure(ctx, ip, path, err.Error())
			if errors.Is(err, keyset.ErrSourceUnavailable) {
				g.log.Error("key source unavailable", "path", path, "err", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// 4. Role authorization.
		identity, err := rbac.Authorize(claims.ClaimSet(), rule.Roles)
		if err != nil {
			if errors.Is(err, rbac.ErrInsufficientRole) {
				g.audit.AccessDenied(ctx, claims.Subject, claims.Role, claims.ShopID, ip, path, err.Error())
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
			g.audit.AuthFailure(ctx, ip, path, err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// A claimed shop must exist in the tenant directory. A
		// directory failure denies; tenancy is never guessed.
		if g.directory != nil && identity.ShopID != "" {
			ok, err := g.directory.Exists(ctx, identity.ShopID)
			if err != nil {
				g.log.Error("shop directory lookup failed", "shop_id", identity.ShopID, "err", err)
			}
			if err != nil || !ok {
				g.audit.AuthFailure(ctx, ip, path, "unknown shop id")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		// 5. Admit.
		g.audit.AuthSuccess(ctx, identity.SubjectID, identity.Role.String(), identity.ShopID, ip, path)
		c.Request = c.Request.WithContext(auth.WithIdentity(ctx, identity))
		propagateIdentity(c, identity)
		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, res ratelimit.Result) {
	c.Header(headerRateLimitLimit, strconv.Itoa(res.Limit))
	c.Header(headerRateLimitRemaining, strconv.Itoa(res.Remaining))
	c.Header(headerRateLimitReset, strconv.FormatInt(res.ResetAt.Unix(), 10))
}

// propagateIdentity stamps the verified identity onto the request
// headers for proxied downstream services. Values set here replace
// anything the caller sent; these headers are trusted downstream only
// because the gate owns them.
func propagateIdentity(c *gin.Context, id rbac.Identity) {
	h := c.Request.Header
	h.Del(headerUserShopID)
	h.Del(headerUserStaffRole)
	h.Del(headerUserPermissions)

	h.Set(headerUserID, id.SubjectID)
	h.Set(headerUserRole, id.Role.String())
	if id.ShopID != "" {
		h.Set(headerUserShopID, id.ShopID)
	}
	if id.StaffRole != "" {
		h.Set(headerUserStaffRole, id.StaffRole.String())
	}
	if len(id.Permissions) > 0 {
		if b, err := json.Marshal(id.Permissions.Strings()); err == nil {
			h.Set(headerUserPermissions, string(b))
		}
	}
}
