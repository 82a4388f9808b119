package server

import (
	"net/http"

	"atoforge/internal/config"
	"atoforge/internal/handlers"
	"atoforge/internal/middleware"
	"atoforge/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("ato_session", store))

	r.Use(middleware.InjectUser())

	// AUTH
	r.POST("/register", handlers.Register)
	r.POST("/login", handlers.Login)
	r.POST("/logout", handlers.Logout)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	// ORGANIZATIONS AND SYSTEMS
	auth.GET("/organizations", handlers.ListOrganizations)
	auth.POST("/organizations",
		middleware.RequireRole(models.RoleAdmin),
		handlers.CreateOrganization,
	)
	auth.GET("/organizations/:id", handlers.ShowOrganization)
	auth.POST("/organizations/:id/systems",
		middleware.RequireRole(models.RoleAdmin),
		handlers.CreateSystem,
	)
	auth.GET("/systems", handlers.ListSystems)

	// CONTROL CATALOGS
	auth.GET("/catalogs", handlers.ListCatalogs)
	auth.POST("/catalogs",
		middleware.RequireRole(models.RoleAdmin),
		handlers.ImportCatalog,
	)
	auth.GET("/catalogs/:id", handlers.ShowCatalog)
	auth.GET("/catalogs/:id/enhancements", handlers.ShowEnhancements)
	auth.GET("/controls/:control_id/parts", handlers.ShowControlParts)
	auth.GET("/controls/:control_id/links", handlers.ListControlLinks)
	auth.POST("/links",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.CreateControlLink,
	)
	auth.DELETE("/controls/:control_id",
		middleware.RequireRole(models.RoleAdmin),
		handlers.DeleteControl,
	)

	// ATO PACKAGES
	auth.GET("/packages", handlers.ListPackages)
	auth.POST("/packages",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.CreatePackage,
	)
	auth.GET("/packages/:id", handlers.ShowPackage)
	auth.POST("/packages/:id/scope",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.ScopePackage,
	)
	auth.POST("/packages/:id/advance",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.AdvancePackagePhase,
	)
	auth.GET("/packages/:id/coverage", handlers.ShowPackageCoverage)

	// CONTROL ASSESSMENTS
	auth.POST("/assessments/:id/status",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.UpdateAssessmentStatus,
	)
	auth.POST("/assessments/:id/test",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.RecordAssessmentTest,
	)
	auth.POST("/assessments/:id/poam",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.CreatePOAMFromAssessment,
	)

	// APPROVALS
	auth.GET("/approvals", handlers.ListApprovals)
	auth.POST("/approvals",
		middleware.RequireRole(models.RoleAdmin, models.RoleApprover),
		handlers.CreateApproval,
	)
	auth.POST("/approvals/:id/decision",
		middleware.RequireRole(models.RoleAdmin, models.RoleApprover),
		handlers.DecideApproval,
	)

	// POA&M
	auth.GET("/poams", handlers.ListPOAMs)
	auth.POST("/poams",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.CreatePOAM,
	)
	auth.POST("/poams/:id/status",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.AdvancePOAM,
	)

	// EVIDENCE
	auth.POST("/artifacts",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.CreateArtifact,
	)
	auth.POST("/artifacts/:id/revisions",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.ReviseArtifact,
	)
	auth.POST("/control-artifacts",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.AttachArtifactToControl,
	)
	auth.POST("/documents",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.CreateDocument,
	)
	auth.POST("/continuity-plans",
		middleware.RequireRole(models.RoleAdmin, models.RoleAssessor),
		handlers.CreateContinuityPlan,
	)

	// AUDIT
	auth.GET("/audit",
		middleware.RequireRole(models.RoleAdmin, models.RoleViewer),
		handlers.ListAuditLogs,
	)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
