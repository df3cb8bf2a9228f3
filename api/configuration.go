package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apimodel "github.com/csveer/csveer/api/model"
)

func (a Api) CreateContext(c *gin.Context) {
	var newContext apimodel.CreateContext
	if err := c.ShouldBindJSON(&newContext); err != nil {
		invalidBody(c, err)
		return
	}

	if err := newContext.ValidateCreateContext(); err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := a.csveer.CreateContext(c.Request.Context(), newContext.ToContextName())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) CreateFileSource(c *gin.Context) {
	var newSource apimodel.CreateFileSource
	if err := c.ShouldBindJSON(&newSource); err != nil {
		invalidBody(c, err)
		return
	}

	if err := newSource.ValidateCreateFileSource(); err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := a.csveer.CreateFileSource(c.Request.Context(), newSource.ToFileSource())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetFileSource(c *gin.Context) {
	resp, err := a.csveer.GetFileSource(c.Request.Context(), c.Param("context"), c.Param("file_source"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) CreateFileDestination(c *gin.Context) {
	var newDestination apimodel.CreateFileDestination
	if err := c.ShouldBindJSON(&newDestination); err != nil {
		invalidBody(c, err)
		return
	}

	if err := newDestination.ValidateCreateFileDestination(); err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := a.csveer.CreateFileDestination(c.Request.Context(), c.Param("context"), c.Param("file_source"), newDestination.ToFileDestination())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetFileDestinations(c *gin.Context) {
	resp, err := a.csveer.GetFileDestinations(c.Request.Context(), c.Param("context"), c.Param("file_source"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
