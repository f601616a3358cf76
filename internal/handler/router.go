package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/family-fund-api/internal/middleware"
	"github.com/noah-isme/family-fund-api/internal/models"
	"github.com/noah-isme/family-fund-api/internal/service"
)

// Handlers bundles every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Beneficiaries *BeneficiaryHandler
	Cases         *CaseHandler
	Members       *MemberHandler
	Reports       *ReportHandler
	Exports       *ExportHandler
}

// RouterDeps are the cross-cutting collaborators of the route table.
type RouterDeps struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditWriter
	Logger *zap.Logger
}

// RegisterRoutes mounts the API on api. Everything except login and signed
// downloads requires a bearer token.
func RegisterRoutes(api gin.IRouter, h Handlers, deps RouterDeps) {
	managers := middleware.RequireRoles(middleware.FundManagers...)
	admins := middleware.RequireRoles(middleware.Administrators...)

	api.POST("/auth/login", h.Auth.Login)
	if h.Exports != nil {
		api.GET("/exports/:token", h.Exports.Download)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))

	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)

	users := secured.Group("/users")
	users.GET("", admins, h.Users.List)
	users.POST("", admins, h.Users.Create)
	users.GET("/:id", middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), middleware.RoleSelf), h.Users.Get)

	beneficiaries := secured.Group("/beneficiaries")
	beneficiaries.GET("", h.Beneficiaries.List)
	beneficiaries.GET("/:id", h.Beneficiaries.Get)
	beneficiaries.POST("", managers, h.Beneficiaries.Create)
	beneficiaries.PUT("/:id", managers, h.Beneficiaries.Update)

	cases := secured.Group("/cases")
	cases.GET("", h.Cases.List)
	cases.POST("", h.Cases.Submit)
	cases.GET("/:id", h.Cases.Get)
	cases.POST("/:id/approve", managers, h.Cases.Approve)
	cases.POST("/:id/reject", managers, h.Cases.Reject)
	cases.POST("/:id/complete", managers, h.Cases.Complete)
	cases.GET("/:id/disbursements", h.Cases.ListDisbursements)
	cases.POST("/:id/disbursements", managers, h.Cases.RecordDisbursement)

	members := secured.Group("/members", managers)
	members.GET("", h.Members.List)
	members.GET("/:id", h.Members.Get)
	members.POST("", middleware.Audit(deps.Audit, deps.Logger, models.AuditActionMemberCreate, "members"), h.Members.Create)

	payments := secured.Group("/payments", managers)
	payments.GET("", h.Members.ListPayments)
	payments.POST("/:id/pay", h.Members.MarkPaid)
	payments.POST("/generate", middleware.Audit(deps.Audit, deps.Logger, models.AuditActionDuesGenerate, "payments"), h.Members.GenerateDues)

	reports := secured.Group("/reports")
	reports.Use(middleware.WithResponseMeta())
	reports.GET("/dashboard", h.Reports.Dashboard)
	reports.GET("/cases", h.Reports.CaseSummary)
	reports.GET("/reconciliation", managers, h.Reports.Reconciliation)
	reports.GET("/funds", h.Reports.Funds)
	reports.GET("/members", managers, h.Reports.Members)
	reports.GET("/monthly", h.Reports.Monthly)
	reports.GET("/cases/export", managers, h.Reports.Export(service.ReportCases))
	reports.GET("/members/export", managers, h.Reports.Export(service.ReportMembers))
	reports.GET("/funds/export", managers, h.Reports.Export(service.ReportFunds))
	reports.GET("/monthly/export", managers, h.Reports.Export(service.ReportMonthly))
	if h.Exports != nil {
		reports.POST("/exports", managers, middleware.Audit(deps.Audit, deps.Logger, models.AuditActionExportRequest, "exports"), h.Exports.Request)
		reports.GET("/exports/:id", h.Exports.Status)
	}
}
