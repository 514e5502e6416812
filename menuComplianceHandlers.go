package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/foodhouse/menucheck_backend/compliance"
	"github.com/foodhouse/menucheck_backend/config"
	"github.com/foodhouse/menucheck_backend/models"
	"github.com/foodhouse/menucheck_backend/utils"
)

func registerMenuComplianceRoutes(api *gin.RouterGroup) {
	group := api.Group("/menu-compliance")

	group.GET("/checks", listChecksHandler())
	group.POST("/checks", runCheckHandler())
	group.GET("/checks/:check_id", getCheckHandler())
	group.GET("/checks/:check_id/results", getCheckResultsHandler())
	group.POST("/checks/:check_id/rerun", rerunCheckHandler())
	group.POST("/upload-menu", uploadMenuHandler())
	group.GET("/stats", complianceStatsHandler())

	group.GET("/rules", listRulesHandler())
	group.POST("/rules", createRuleHandler())
	group.PUT("/rules/:rule_id", updateRuleHandler())
	group.DELETE("/rules/:rule_id", deleteRuleHandler())
}

// respondError maps the error taxonomy onto HTTP statuses. Anything
// unrecognized is a 500 and gets logged with its correlation id.
func respondError(c *gin.Context, funcName string, data any, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, utils.ErrorNoMenuData):
		c.JSON(http.StatusNotFound, gin.H{"error": "no menu data found for this period"})
	case errors.Is(err, utils.ErrorCheckInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "a check for this period is already in progress"})
	case errors.Is(err, utils.ErrorDuplicateValue):
		c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate value"})
	default:
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(config.GetLogger(), "menuComplianceHandlers.go", funcName, correlationId, data, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func paramInt(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func listChecksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.MenuCheckFilter
		if v := c.Query("site_id"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.SiteId = &n
			}
		}
		if v := c.Query("year"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Year = &n
			}
		}
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = &n
			}
		}

		checks, err := models.ListMenuChecks(c.Request.Context(), filter)
		if err != nil {
			respondError(c, "listChecksHandler", filter, err)
			return
		}
		c.JSON(http.StatusOK, checks)
	}
}

func getCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checkId, ok := paramInt(c, "check_id")
		if !ok {
			return
		}
		check, err := models.GetMenuCheck(c.Request.Context(), checkId)
		if err != nil {
			respondError(c, "getCheckHandler", checkId, err)
			return
		}
		c.JSON(http.StatusOK, check)
	}
}

func getCheckResultsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checkId, ok := paramInt(c, "check_id")
		if !ok {
			return
		}
		results, err := models.GetCheckResults(c.Request.Context(), checkId)
		if err != nil {
			respondError(c, "getCheckResultsHandler", checkId, err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

type runCheckRequest struct {
	SiteId int `json:"site_id" binding:"required,gt=0"`
	Month  int `json:"month" binding:"required,min=1,max=12"`
	Year   int `json:"year" binding:"required,min=2000,max=2100"`
}

func runCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "compliance.run")
		defer span.End()

		check, err := compliance.NewOrchestrator().RunCheck(ctx, req.SiteId, req.Month, req.Year, nil)
		if err != nil {
			respondError(c, "runCheckHandler", req, err)
			return
		}
		c.JSON(http.StatusOK, check)
	}
}

func rerunCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checkId, ok := paramInt(c, "check_id")
		if !ok {
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "compliance.rerun")
		defer span.End()

		if _, err := compliance.NewOrchestrator().RerunCheck(ctx, checkId); err != nil {
			respondError(c, "rerunCheckHandler", checkId, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func complianceStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := models.GetComplianceOverview(c.Request.Context())
		if err != nil {
			respondError(c, "complianceStatsHandler", nil, err)
			return
		}
		c.JSON(http.StatusOK, overview)
	}
}

func listRulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		activeOnly := c.Query("active_only") == "true"
		rules, err := models.GetAllComplianceRules(c.Request.Context(), activeOnly)
		if err != nil {
			respondError(c, "listRulesHandler", nil, err)
			return
		}
		c.JSON(http.StatusOK, rules)
	}
}

func createRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewComplianceRule
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rule, err := models.CreateComplianceRule(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createRuleHandler", input, err)
			return
		}
		c.JSON(http.StatusCreated, rule)
	}
}

func updateRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ruleId, ok := paramInt(c, "rule_id")
		if !ok {
			return
		}
		var input models.NewComplianceRule
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rule, err := models.UpdateComplianceRule(c.Request.Context(), ruleId, &input)
		if err != nil {
			respondError(c, "updateRuleHandler", input, err)
			return
		}
		c.JSON(http.StatusOK, rule)
	}
}

// deleteRuleHandler deactivates by default. ?purge=true removes the rule row
// and nulls any catalog links pointing at it.
func deleteRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ruleId, ok := paramInt(c, "rule_id")
		if !ok {
			return
		}

		var rule *models.ComplianceRule
		var err error
		if c.Query("purge") == "true" {
			rule, err = models.PurgeComplianceRule(c.Request.Context(), ruleId)
		} else {
			rule, err = models.DeactivateComplianceRule(c.Request.Context(), ruleId)
		}
		if err != nil {
			respondError(c, "deleteRuleHandler", ruleId, err)
			return
		}
		c.JSON(http.StatusOK, rule)
	}
}
