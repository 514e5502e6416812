package main

import (
	"net/http"

	"github.com/foodhouse/menucheck_backend/models"
	"github.com/gin-gonic/gin"
)

func registerSiteRoutes(api *gin.RouterGroup) {
	group := api.Group("/sites")

	group.GET("", listSitesHandler())
	group.POST("", createSiteHandler())
	group.GET("/:site_id", getSiteHandler())
}

func listSitesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sites, err := models.GetAllSites(c.Request.Context())
		if err != nil {
			respondError(c, "listSitesHandler", nil, err)
			return
		}
		c.JSON(http.StatusOK, sites)
	}
}

func createSiteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSite
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		site, err := models.CreateSite(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createSiteHandler", input, err)
			return
		}
		c.JSON(http.StatusCreated, site)
	}
}

func getSiteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		siteId, ok := paramInt(c, "site_id")
		if !ok {
			return
		}
		site, err := models.GetSite(c.Request.Context(), siteId)
		if err != nil {
			respondError(c, "getSiteHandler", siteId, err)
			return
		}
		c.JSON(http.StatusOK, site)
	}
}
