package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/foodhouse/menucheck_backend/compliance"
	"github.com/foodhouse/menucheck_backend/menuparse"
	"github.com/foodhouse/menucheck_backend/models"
)

const maxMenuUploadBytes int64 = 10 * 1024 * 1024

var menuFileExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".xlsx": true,
	".xlsm": true,
}

func menuUploadDir() string {
	dir := strings.TrimSpace(os.Getenv("MENU_UPLOAD_DIR"))
	if dir == "" {
		dir = "uploads/menus"
	}
	return dir
}

// uploadMenuHandler ingests a month's menu file: persist the file, parse it
// into days, replace the site's stored days for that month, then run a check.
func uploadMenuHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		siteId, err := strconv.Atoi(c.PostForm("site_id"))
		if err != nil || siteId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid site_id"})
			return
		}
		month, err := strconv.Atoi(c.PostForm("month"))
		if err != nil || month < 1 || month > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be 1-12"})
			return
		}
		year, err := strconv.Atoi(c.PostForm("year"))
		if err != nil || year < 2000 || year > 2100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "menu file is required"})
			return
		}
		if file.Size > maxMenuUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
			return
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !menuFileExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported menu file type"})
			return
		}

		dir := menuUploadDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			respondError(c, "uploadMenuHandler", dir, err)
			return
		}
		storedPath := filepath.Join(dir, fmt.Sprintf("%d-%02d-%d-%s%s", siteId, month, year, uuid.NewString(), ext))
		if err := c.SaveUploadedFile(file, storedPath); err != nil {
			respondError(c, "uploadMenuHandler", storedPath, err)
			return
		}

		parsed, err := menuparse.ParseMenuFile(storedPath, month, year)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not parse menu file: " + err.Error()})
			return
		}

		days := toMenuDays(siteId, parsed)
		if err := models.ReplaceMenuDays(c.Request.Context(), siteId, month, year, days); err != nil {
			respondError(c, "uploadMenuHandler", siteId, err)
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "compliance.upload_run")
		defer span.End()

		check, err := compliance.NewOrchestrator().RunCheck(ctx, siteId, month, year, &storedPath)
		if err != nil {
			respondError(c, "uploadMenuHandler", siteId, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"check":       check,
			"days_parsed": len(days),
			"file_path":   storedPath,
		})
	}
}

// toMenuDays numbers weeks sequentially from 1, advancing whenever the ISO
// week changes. Parsed days arrive date ascending.
func toMenuDays(siteId int, parsed []menuparse.ParsedDay) []*models.MenuDay {
	days := make([]*models.MenuDay, 0, len(parsed))
	weekNumber := 0
	var prevWeek [2]int
	for _, day := range parsed {
		isoYear, isoWeek := day.Date.ISOWeek()
		week := [2]int{isoYear, isoWeek}
		if weekNumber == 0 || week != prevWeek {
			weekNumber++
			prevWeek = week
		}

		items := models.MenuItems{}
		for category, dishes := range day.Items {
			items[category] = dishes
		}
		days = append(days, &models.MenuDay{
			SiteId:     siteId,
			Date:       day.Date,
			DayOfWeek:  day.DayOfWeek,
			WeekNumber: weekNumber,
			Items:      items,
		})
	}
	return days
}
