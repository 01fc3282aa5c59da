package handlers

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"socialposts/internal/requestctx"
	"socialposts/internal/service"
)

const (
	imageCacheControl          = "public, max-age=31536000, immutable"
	imageContentSecurityPolicy = "default-src 'none'; sandbox"
)

func (h *Handlers) GetImageByName(w http.ResponseWriter, r *http.Request) {
	img, err := h.ImageService.OpenByName(r.Context(), mux.Vars(r)["filename"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.streamImage(w, r, img)
}

func (h *Handlers) GetImageByID(w http.ResponseWriter, r *http.Request) {
	img, err := h.ImageService.OpenByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.streamImage(w, r, img)
}

// streamImage copies the object to the client chunk by chunk. A read failure
// before the first byte becomes a 500; after that the connection is aborted.
func (h *Handlers) streamImage(w http.ResponseWriter, r *http.Request, img *service.ImageStream) {
	defer img.Close()

	header := w.Header()
	header.Set("Content-Type", img.ContentType)
	header.Set("Content-Length", strconv.FormatInt(img.Length, 10))
	header.Set("Cache-Control", imageCacheControl)
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Content-Security-Policy", imageContentSecurityPolicy)
	if img.OriginalName != "" {
		if disposition := mime.FormatMediaType("inline", map[string]string{"filename": img.OriginalName}); disposition != "" {
			header.Set("Content-Disposition", disposition)
		}
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	src := &readTracker{r: img}
	written, err := io.Copy(w, src)
	if err == nil {
		return
	}

	log := h.Log.With(
		"request_id", requestctx.RequestID(r.Context()),
		"path", r.URL.Path,
		"bytes_sent", written,
	)

	if src.err == nil {
		// the client went away
		log.DebugContext(r.Context(), "image stream write failed", "error", err)
		return
	}

	log.ErrorContext(r.Context(), "image stream read failed", "error", src.err)

	if written == 0 {
		for _, k := range []string{"Content-Length", "Content-Disposition", "Cache-Control"} {
			header.Del(k)
		}
		WriteError(w, "failed to read image", http.StatusInternalServerError)
		return
	}

	panic(http.ErrAbortHandler)
}

// readTracker remembers the first non-EOF read error so it can be told apart
// from a write error.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
