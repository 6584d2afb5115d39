package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"blog-service/internal/auth"
	"blog-service/internal/observability"
)

const maxUploadSizeBytes = 10 << 20

// AvatarUploader is implemented by Cloudinary.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, imageSource string) (string, error)
}

// AvatarHandler accepts a multipart image upload from an authenticated
// user and returns the hosted URL to use as the userImg reference.
type AvatarHandler struct {
	uploader AvatarUploader
	logger   *observability.Logger
}

func NewAvatarHandler(uploader AvatarUploader, logger *observability.Logger) *AvatarHandler {
	return &AvatarHandler{uploader: uploader, logger: logger}
}

func (h *AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeError(w, http.StatusInternalServerError, "image uploader is not configured")
		return
	}

	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSizeBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "file is empty")
		return
	}
	if len(data) > maxUploadSizeBytes {
		writeError(w, http.StatusBadRequest, "file is too large")
		return
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		writeError(w, http.StatusBadRequest, "file must be an image")
		return
	}

	imageSource := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	secureURL, err := h.uploader.UploadAvatar(r.Context(), imageSource)
	if err != nil {
		sentry.CaptureException(err)
		h.logger.Error("avatar_upload_failed", map[string]any{
			"error":    err.Error(),
			"username": identity.Username,
		})
		writeError(w, http.StatusBadGateway, "failed to upload image")
		return
	}

	h.logger.Info("avatar_uploaded", map[string]any{"username": identity.Username})
	writeJSON(w, http.StatusOK, map[string]any{
		"status": http.StatusOK,
		"result": map[string]string{"secure_url": secureURL},
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": status, "error": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
