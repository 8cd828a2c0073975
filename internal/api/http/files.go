package http

import (
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/eduhub-assess/internal/storage"
)

const maxUpload = 32 << 20

// POST /api/upload (multipart field "file")
func UploadHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			fail(w, badRequest("file required"))
			return
		}
		defer f.Close()

		key := storage.NewKey(hdr.Filename, time.Now())
		n, err := bs.Put(key, f)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"key":  key,
			"url":  bs.URL(key),
			"name": hdr.Filename,
			"size": n,
		})
	}
}

// GET /api/files/* returns the blob at whatever follows /files/.
func FileHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		rc, err := bs.Get(key)
		if err != nil {
			fail(w, err)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		if _, err := io.Copy(w, rc); err != nil {
			log.Printf("api: serve %s: %v", key, err)
		}
	}
}
