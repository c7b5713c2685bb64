package analyses

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-roaster/internal/extract"
	"resume-roaster/internal/settings"
	"resume-roaster/internal/shared/server/middleware"
	"resume-roaster/internal/shared/server/respond"
	"resume-roaster/internal/shared/util"
)

// Handler wires HTTP handlers to the analysis service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
	rg.GET("/health", h.health)
}

type analyzeRequest struct {
	Text string `json:"text" form:"text"`
	settings.Raw
}

func (h *Handler) analyze(c *gin.Context) {
	var body analyzeRequest
	var file FileMeta

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&body); err != nil {
			respond.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "The upload form could not be read.", nil)
			return
		}
		fh, err := c.FormFile("file")
		switch {
		case err == nil:
			text, meta, uerr := readUpload(c, fh)
			if uerr != nil {
				respond.Error(c, uerr.status, uerr.code, uerr.message, nil)
				return
			}
			body.Text, file = text, meta
		case !errors.Is(err, http.ErrMissingFile):
			respond.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "The upload form could not be read.", nil)
			return
		}
	} else if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Send a JSON body with a text field, or upload a file.", nil)
		return
	}

	res := h.Svc.Analyze(c.Request.Context(), Request{
		Text:      body.Text,
		Config:    body.Raw,
		File:      file,
		RequestID: middleware.RequestIDFromContext(c),
	})
	if !res.Success {
		respond.Error(c, res.Status, res.ErrorCode, res.UserMessage, nil)
		return
	}
	c.Set("resumeId", res.Record.ResumeID)
	respond.JSON(c, http.StatusOK, res)
}

type uploadError struct {
	status  int
	code    string
	message string
}

var (
	errUploadName        = &uploadError{http.StatusBadRequest, "INVALID_FILE_NAME", "The file name is not allowed."}
	errUploadUnreadable  = &uploadError{http.StatusUnprocessableEntity, "FILE_UNREADABLE", "The file could not be read."}
	errUploadUnsupported = &uploadError{http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE", "Upload a PDF, DOCX, HTML or plain text file."}
	errUploadTooLarge    = &uploadError{http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", fmt.Sprintf("Files must be smaller than %d MB.", extract.MaxFileSize>>20)}
)

// readUpload extracts text from an uploaded file.
func readUpload(c *gin.Context, fh *multipart.FileHeader) (string, FileMeta, *uploadError) {
	name, err := util.SanitizeFileName(fh.Filename)
	if err != nil {
		return "", FileMeta{}, errUploadName
	}
	if fh.Size > extract.MaxFileSize {
		return "", FileMeta{}, errUploadTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", FileMeta{}, errUploadUnreadable
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, extract.MaxFileSize+1))
	if err != nil {
		return "", FileMeta{}, errUploadUnreadable
	}

	meta := FileMeta{Name: name, MimeType: fh.Header.Get("Content-Type"), Size: fh.Size}
	text, err := extract.Text(c.Request.Context(), data, meta.MimeType, name)
	switch {
	case err == nil:
		return text, meta, nil
	case errors.Is(err, extract.ErrUnsupportedType):
		return "", meta, errUploadUnsupported
	case errors.Is(err, extract.ErrTooLarge):
		return "", meta, errUploadTooLarge
	}
	return "", meta, errUploadUnreadable
}

func (h *Handler) health(c *gin.Context) {
	respond.OK(c, h.Svc.Health(c.Request.Context()))
}
