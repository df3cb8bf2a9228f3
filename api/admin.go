package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/csveer/csveer/internal/apierror"
)

// RecoverDispatches runs one recovery pass now. threshold is a Go duration such as
// "10m"; without it the configured stale threshold applies.
func (a Api) RecoverDispatches(c *gin.Context) {
	threshold := time.Duration(a.csveer.Config().Recovery.StaleThresholdSeconds) * time.Second
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			respondWithError(c, apierror.NewDetailedValidationError("Invalid recovery threshold", fmt.Sprintf("'%s' is not a duration", raw)))
			return
		}
		threshold = parsed
	}

	recovered, err := a.csveer.RecoverPendingDispatches(c.Request.Context(), threshold)
	if err != nil {
		respondWithError(c, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to recover dispatches", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"recovered": recovered})
}
