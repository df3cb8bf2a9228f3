/*
Copyright 2024 Csveer Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/csveer/csveer"
	"github.com/csveer/csveer/api/middleware"
	"github.com/csveer/csveer/config"
	"github.com/csveer/csveer/internal/apierror"
)

type Api struct {
	csveer *csveer.Csveer
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/context", a.CreateContext)
	router.POST("/source", a.CreateFileSource)
	router.GET("/:context/:file_source", a.GetFileSource)
	router.POST("/:context/:file_source/destination", a.CreateFileDestination)
	router.GET("/:context/:file_source/destinations", a.GetFileDestinations)
	router.POST("/:context/:file_source/upload", a.UploadFiles)

	router.GET("/dispatches", a.ListDataDispatches)
	router.GET("/dispatches/:id", a.GetDataDispatch)
	router.GET("/dispatches/:id/executions", a.ListDispatchExecutions)
	router.POST("/dispatches/:id/executions", a.RecordDispatchExecution)

	router.POST("/admin/recover-dispatches", a.RecoverDispatches)
	return a.router
}

func NewAPI(c *csveer.Csveer) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("csveer"))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{csveer: c, router: r}
}

// respondWithError renders err with the status its code maps to.
func respondWithError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), apierror.ToResponse(err))
}

func invalidBody(c *gin.Context, err error) {
	respondWithError(c, apierror.NewDetailedValidationError("Invalid request body", err.Error()))
}
