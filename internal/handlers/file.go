package handlers

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/review-portal/internal/constants"
	"github.com/yukikurage/review-portal/internal/dto"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
	"github.com/yukikurage/review-portal/internal/middleware"
	"github.com/yukikurage/review-portal/internal/services"
	"github.com/yukikurage/review-portal/internal/utils"
)

// FilePasswordHeader carries the password of a protected file on download.
const FilePasswordHeader = "X-File-Password"

type FileHandler struct {
	fileService *services.FileService
	maxBytes    int64
}

func NewFileHandler(fileService *services.FileService, maxBytes int64) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		maxBytes:    maxBytes,
	}
}

// ListFiles returns the files visible to the current user.
func (h *FileHandler) ListFiles(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	files, total, err := h.fileService.ListFiles(c.Request.Context(), actor, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToFileListResponse(files, params.Page, params.Limit, total))
}

// ReviewQueue returns the pending files the current user can review.
func (h *FileHandler) ReviewQueue(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	files, err := h.fileService.ReviewQueue(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": dto.ToFileDTOs(files)})
}

func (h *FileHandler) GetFile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	file, err := h.fileService.GetFile(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToFileDTO(*file))
}

// UploadFile accepts a multipart upload. The file goes straight to review.
func (h *FileHandler) UploadFile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UploadFileRequest struct {
		Name            string                   `form:"name" binding:"max=255"`
		Type            string                   `form:"type" binding:"max=255"`
		Description     string                   `form:"description"`
		EncryptionLevel services.EncryptionLevel `form:"encryptionLevel" binding:"omitempty,encryption_level"`
		Password        string                   `form:"password"`
	}

	h.limitBody(c)
	var req UploadFileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	header, err := c.FormFile(constants.UploadFormField)
	if err != nil {
		h.respondFormFileError(c, err)
		return
	}
	content, err := header.Open()
	if err != nil {
		apierrors.BadRequest(c, "Unreadable file")
		return
	}
	defer content.Close()

	name := req.Name
	if name == "" {
		name = header.Filename
	}

	file, err := h.fileService.Upload(c.Request.Context(), actor, services.UploadInput{
		Name:            name,
		Type:            contentType(req.Type, header),
		Description:     req.Description,
		Content:         content,
		EncryptionLevel: req.EncryptionLevel,
		Password:        req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToFileDTO(*file))
}

// ReuploadFile replaces a reverted file and resubmits it. The file part is
// optional; omitted fields keep their value.
func (h *FileHandler) ReuploadFile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type ReuploadFileRequest struct {
		Name        *string `form:"name" binding:"omitempty,max=255"`
		Type        *string `form:"type" binding:"omitempty,max=255"`
		Description *string `form:"description"`
		Version     *uint64 `form:"version"`
	}

	h.limitBody(c)
	var req ReuploadFileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	input := services.ReuploadInput{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Version:     req.Version,
	}

	header, err := c.FormFile(constants.UploadFormField)
	switch {
	case err == nil:
		content, err := header.Open()
		if err != nil {
			apierrors.BadRequest(c, "Unreadable file")
			return
		}
		defer content.Close()
		input.Content = content
		if input.Type == nil {
			t := contentType("", header)
			input.Type = &t
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		h.respondFormFileError(c, err)
		return
	}

	file, err := h.fileService.Reupload(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToFileDTO(*file))
}

// ReviewFile approves or reverts a file pending review.
func (h *FileHandler) ReviewFile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	req, ok := bindReview(c)
	if !ok {
		return
	}

	file, err := h.fileService.ReviewFile(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToFileDTO(*file))
}

// DownloadFile streams the stored content. Protected files need the password
// in the X-File-Password header.
func (h *FileHandler) DownloadFile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	file, content, err := h.fileService.Download(c.Request.Context(), actor, c.Param("id"), c.GetHeader(FilePasswordHeader))
	if err != nil {
		respondError(c, err)
		return
	}
	defer content.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Name})
	c.DataFromReader(http.StatusOK, file.Size, file.Type, content, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (h *FileHandler) DeleteFile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.fileService.DeleteFile(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File deleted successfully",
	})
}

// limitBody caps the request body at the upload limit plus room for the
// other form fields.
func (h *FileHandler) limitBody(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	}
}

func (h *FileHandler) respondFormFileError(c *gin.Context, err error) {
	if !errors.Is(err, http.ErrMissingFile) {
		respondBindError(c, err)
		return
	}
	apierrors.BadRequestWithDetails(c, "Invalid request body", map[string]string{
		constants.UploadFormField: "required",
	})
}

func contentType(declared string, header *multipart.FileHeader) string {
	if declared != "" {
		return declared
	}
	if t := header.Header.Get("Content-Type"); t != "" {
		return t
	}
	return "application/octet-stream"
}
