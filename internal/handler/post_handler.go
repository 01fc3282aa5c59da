package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"

	"socialposts/internal/requestctx"
	"socialposts/internal/service"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// allowedImageTypes are raster formats only. SVG can carry script.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type DeletePostResponse struct {
	Message string                `json:"message"`
	Cleanup service.CleanupReport `json:"cleanup"`
}

// parsePagination reads page and limit, defaulting to 1 and 10.
func parsePagination(r *http.Request) (int, int, error) {
	page, limit := defaultPage, defaultLimit

	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		page = n
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
		}
		limit = n
	}

	return page, limit, nil
}

func (h *Handlers) GetPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.PostService.ListPosts(r.Context(), page, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, result, http.StatusOK)
}

func (h *Handlers) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.PostService.ListPostsByUser(r.Context(), mux.Vars(r)["id"], page, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, result, http.StatusOK)
}

func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.PostService.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, post, http.StatusOK)
}

// CreatePost accepts multipart/form-data with title, content and up to
// MaxFilesPerPost files under "images".
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.Cfg.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, fmt.Sprintf("request body too large (max %d MB)", h.Cfg.MaxUploadSize/(1024*1024)),
				http.StatusRequestEntityTooLarge)
			return
		}
		WriteError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	if len(headers) > h.Cfg.MaxFilesPerPost {
		WriteError(w, fmt.Sprintf("too many files (max %d)", h.Cfg.MaxFilesPerPost), http.StatusBadRequest)
		return
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readImagePart(fh)
		if err != nil {
			WriteError(w, err.Error(), http.StatusBadRequest)
			return
		}
		files = append(files, file)
	}

	post, err := h.PostService.CreatePostWithImages(r.Context(), service.CreatePostRequest{
		UserID:  requestctx.UserID(r.Context()),
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
	}, files)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, post, http.StatusCreated)
}

// readImagePart loads one uploaded file and checks that its bytes are an image.
func readImagePart(fh *multipart.FileHeader) (service.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return service.UploadFile{}, fmt.Errorf("cannot read file %q", fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.UploadFile{}, fmt.Errorf("cannot read file %q", fh.Filename)
	}

	detected := mimetype.Detect(data)
	if !allowedImageTypes[detected.String()] {
		return service.UploadFile{}, fmt.Errorf("file %q is not an image (allowed: jpeg, png, gif, webp)", fh.Filename)
	}

	return service.UploadFile{
		Data:         data,
		OriginalName: fh.Filename,
		ContentType:  detected.String(),
	}, nil
}

func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var patch service.PostPatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	post, err := h.PostService.UpdatePost(r.Context(), mux.Vars(r)["id"], patch, requestctx.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, post, http.StatusOK)
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	report, err := h.PostService.DeletePost(r.Context(), mux.Vars(r)["id"], requestctx.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, DeletePostResponse{Message: "post deleted", Cleanup: report}, http.StatusOK)
}
