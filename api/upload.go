package api

import (
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/csveer/csveer"
	"github.com/csveer/csveer/internal/apierror"
)

// UploadFiles accepts every file part of a multipart body, whatever its field name.
func (a Api) UploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondWithError(c, apierror.NewDetailedValidationError("Invalid multipart upload", err.Error()))
		return
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var (
		files   []csveer.FileUpload
		handles []multipart.File
	)
	defer func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}()

	for _, field := range fields {
		for _, header := range form.File[field] {
			f, err := header.Open()
			if err != nil {
				respondWithError(c, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read uploaded file", err))
				return
			}
			handles = append(handles, f)
			files = append(files, csveer.FileUpload{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Body:        f,
			})
		}
	}

	resp, err := a.csveer.UploadFiles(c.Request.Context(), c.Param("context"), c.Param("file_source"), files)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}
