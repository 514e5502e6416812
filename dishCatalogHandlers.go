package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/foodhouse/menucheck_backend/models"
)

func registerDishCatalogRoutes(api *gin.RouterGroup) {
	group := api.Group("/dish-catalog")

	group.GET("", listDishCatalogHandler())
	group.POST("", createDishCatalogHandler())
	group.PUT("/:dish_id", updateDishCatalogHandler())
	group.DELETE("/:dish_id", deleteDishCatalogHandler())
	group.GET("/categories", dishCategoriesHandler())
	group.GET("/stats", dishCatalogStatsHandler())
	group.POST("/extract/:check_id", extractDishesHandler())
}

func listDishCatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.DishCatalogFilter
		if v := c.Query("category"); v != "" {
			category := models.DishCategory(v)
			if !category.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
				return
			}
			filter.Category = &category
		}
		filter.Unassigned = c.Query("unassigned") == "true"
		filter.Search = c.Query("search")

		entries, err := models.ListDishCatalog(c.Request.Context(), filter)
		if err != nil {
			respondError(c, "listDishCatalogHandler", filter, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func createDishCatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDishCatalogEntry
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entry, err := models.CreateDishCatalogEntry(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createDishCatalogHandler", input, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

func updateDishCatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dishId, ok := paramInt(c, "dish_id")
		if !ok {
			return
		}
		var input models.DishCatalogUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entry, err := models.UpdateDishCatalogEntry(c.Request.Context(), dishId, &input)
		if err != nil {
			respondError(c, "updateDishCatalogHandler", input, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func deleteDishCatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dishId, ok := paramInt(c, "dish_id")
		if !ok {
			return
		}
		entry, err := models.DeleteDishCatalogEntry(c.Request.Context(), dishId)
		if err != nil {
			respondError(c, "deleteDishCatalogHandler", dishId, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func dishCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories := make([]gin.H, 0, len(models.DishCategories))
		for _, category := range models.DishCategories {
			categories = append(categories, gin.H{
				"value": category,
				"label": models.DishCategoryLabels[category],
			})
		}
		c.JSON(http.StatusOK, categories)
	}
}

func dishCatalogStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := models.GetDishCatalogStats(c.Request.Context())
		if err != nil {
			respondError(c, "dishCatalogStatsHandler", nil, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// extractDishesHandler backfills the catalog from a finished check's parsed
// menu days.
func extractDishesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checkId, ok := paramInt(c, "check_id")
		if !ok {
			return
		}
		extraction, err := models.ExtractDishesFromCheck(c.Request.Context(), checkId)
		if err != nil {
			respondError(c, "extractDishesHandler", checkId, err)
			return
		}
		c.JSON(http.StatusOK, extraction)
	}
}
