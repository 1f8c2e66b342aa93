package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyalty-platform/internal/audit"
	"loyalty-platform/internal/auth"
	"loyalty-platform/internal/gate"
	"loyalty-platform/internal/rbac"
)

// routeTable classifies the protected path prefixes. Paths outside the
// table (health, public menus) pass the gate unguarded.
func routeTable() gate.RouteTable {
	return gate.RouteTable{
		// Platform administration: super admins only, strict limiting.
		{Prefix: "/v1/admin", Roles: []rbac.Role{rbac.RoleSuperAdmin}, Sensitive: true},

		// Staff management is shop-admin territory and rate-limited
		// like an admin surface.
		{Prefix: "/v1/staff", Roles: []rbac.Role{rbac.RoleShopAdmin}, Sensitive: true},

		// Shop resources: any authenticated caller may enter; handlers
		// apply tenant access checks per resource.
		{Prefix: "/v1/shops", Roles: nil},

		{Prefix: "/v1/me", Roles: nil},
	}
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, auditSvc *audit.Service) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		// Identity echo for downstream debugging.
		v1.GET("/me", func(c *gin.Context) {
			id, ok := auth.IdentityFrom(c.Request.Context())
			if !ok {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"subject_id":  id.SubjectID,
				"role":        id.Role,
				"shop_id":     id.ShopID,
				"staff_role":  id.StaffRole,
				"permissions": id.Permissions.Strings(),
			})
		})

		shops := v1.Group("/shops")
		{
			// Tenant-scoped read: customers, staff and the shop's
			// admin may see the summary of their own shop.
			shops.GET("/:shop_id/summary", func(c *gin.Context) {
				id, ok := auth.IdentityFrom(c.Request.Context())
				if !ok {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
					return
				}
				shopID := c.Param("shop_id")
				if !rbac.CanAccess(id, shopID, rbac.Read) {
					c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
					return
				}
				c.JSON(http.StatusOK, gin.H{"shop_id": shopID})
			})

			// Tenant-scoped write: staff need the transaction
			// permission, admins of the shop always pass.
			shops.POST("/:shop_id/transactions", func(c *gin.Context) {
				id, ok := auth.IdentityFrom(c.Request.Context())
				if !ok {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
					return
				}
				shopID := c.Param("shop_id")
				if !rbac.CanAccess(id, shopID, rbac.Write, rbac.PermCreateTransaction) {
					c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
					return
				}
				// Transaction recording itself lives downstream; the
				// gateway repo only demonstrates the access check.
				c.JSON(http.StatusAccepted, gin.H{"shop_id": shopID, "status": "accepted"})
			})
		}

		admin := v1.Group("/admin")
		{
			admin.POST("/shops/:shop_id/suspend", func(c *gin.Context) {
				id, ok := auth.IdentityFrom(c.Request.Context())
				if !ok {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
					return
				}
				shopID := c.Param("shop_id")
				auditSvc.AdminAction(c.Request.Context(), id.SubjectID, id.Role.String(), shopID, c.ClientIP(), "suspend_shop", "")
				c.JSON(http.StatusAccepted, gin.H{"shop_id": shopID, "status": "suspended"})
			})
		}
	}
}
