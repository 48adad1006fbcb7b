package handler

import (
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

// requireClaims writes a 401 and returns nil when the request carries no claims.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Invalid(err, message))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}

// formUpload opens the multipart file under field. A missing field yields nil without error.
func formUpload(c *gin.Context, field string) (*models.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Invalid(err, "invalid multipart upload")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*models.Upload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read upload")
	}
	upload := &models.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}
	return upload, func() { _ = file.Close() }, nil
}

// serveFile streams a stored file, honouring Range and If-Modified-Since.
func serveFile(c *gin.Context, res *models.FileResource, download bool) {
	defer res.File.Close()
	disposition := "inline"
	if download {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, res.Name))
	http.ServeContent(c.Writer, c.Request, res.Name, res.ModTime, res.File)
}

// resetLinkBase derives the public scheme, host and port of the request.
func resetLinkBase(c *gin.Context) models.ResetLinkBase {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host, port, err := net.SplitHostPort(c.Request.Host)
	if err != nil {
		host, port = c.Request.Host, ""
	}
	return models.ResetLinkBase{Scheme: scheme, Host: host, Port: port}
}
