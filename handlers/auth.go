package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"venuepilot/config"
	"venuepilot/utils"

	"github.com/gin-gonic/gin"
)

const managerTokenTTL = 12 * time.Hour

// ManagerLoginHandler exchanges the shared manager key for a short-lived JWT
// used by the approval surface. Disabled when MANAGER_KEY is unset.
func ManagerLoginHandler(c *gin.Context) {
	var input struct {
		Name string `json:"name"`
		Key  string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login payload", "details": err.Error()})
		return
	}

	configured := config.AppConfig.ManagerKey
	if configured == "" || subtle.ConstantTimeCompare([]byte(input.Key), []byte(configured)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid manager key"})
		return
	}

	subject := input.Name
	if subject == "" {
		subject = "manager"
	}
	token, err := utils.GenerateManagerToken(subject, managerTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresIn": int(managerTokenTTL.Seconds())})
}
