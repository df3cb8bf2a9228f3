package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apimodel "github.com/csveer/csveer/api/model"
	"github.com/csveer/csveer/database"
	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

func dispatchID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.NewDetailedValidationError("Invalid data dispatch id", fmt.Sprintf("'%s' is not a valid id", raw))
	}
	return id, nil
}

func dispatchFilter(c *gin.Context) (database.DispatchFilter, error) {
	var (
		filter  database.DispatchFilter
		details []string
	)

	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseDispatchStatus(raw)
		if err != nil {
			details = append(details, fmt.Sprintf("Unknown status '%s'", raw))
		} else {
			filter.Status = &status
		}
	}
	if raw := c.Query("file_destination_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			details = append(details, fmt.Sprintf("file_destination_id '%s' is not a number", raw))
		} else {
			filter.FileDestinationID = &id
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, fmt.Sprintf("limit '%s' is not a number", raw))
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, fmt.Sprintf("offset '%s' is not a number", raw))
		}
		filter.Offset = offset
	}

	if len(details) > 0 {
		return filter, apierror.NewDetailedValidationError("Invalid dispatch filter", details...)
	}
	return filter, nil
}

func (a Api) GetDataDispatch(c *gin.Context) {
	id, err := dispatchID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := a.csveer.GetDataDispatch(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) ListDataDispatches(c *gin.Context) {
	filter, err := dispatchFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := a.csveer.ListDataDispatches(c.Request.Context(), filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) ListDispatchExecutions(c *gin.Context) {
	id, err := dispatchID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := a.csveer.ListDispatchExecutions(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecordDispatchExecution is called by executors once they attempted a dispatch.
func (a Api) RecordDispatchExecution(c *gin.Context) {
	id, err := dispatchID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var report apimodel.RecordExecution
	if err := c.ShouldBindJSON(&report); err != nil {
		invalidBody(c, err)
		return
	}
	if err := report.ValidateRecordExecution(); err != nil {
		respondWithError(c, err)
		return
	}

	dispatch, execution, err := a.csveer.RecordDispatchExecution(c.Request.Context(), id, model.ExecutionStatus(report.Status), report.Message)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data_dispatch": dispatch, "execution": execution})
}
