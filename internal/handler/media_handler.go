package handler

import (
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"wadash/internal/app/media"
	"wadash/internal/app/storage"
	"wadash/internal/pkg/auth/jwt"
	"wadash/internal/pkg/errs"
	"wadash/internal/pkg/logx"
	"wadash/internal/pkg/req"
	"wadash/internal/pkg/resp"
)

// MediaAsset is returned to the upload widgets after a file is stored.
type MediaAsset struct {
	Key       string `json:"fileKey"`
	URL       string `json:"url"`
	Name      string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"fileSize"`
	SizeHuman string `json:"fileSizeHuman"`
}

// HandleUploadMedia stores one multipart "file" part under the category in the URL.
// An optional "folder" form field nests the object below the category prefix.
func HandleUploadMedia(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, customErr := media.LookupCategory(chi.URLParam(r, "category"))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := req.SetupMultipart(w, r, category.MaxSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileMissing))
			return
		}
		defer file.Close()

		if customErr := category.ValidateFileSize(header.Size); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, category.MaxSize+1))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}
		if customErr := category.ValidateFileSize(int64(len(data))); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		mimeType := media.ResolveType(header.Header.Get("Content-Type"), data)
		if customErr := category.ValidateFileType(mimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		key, customErr := category.ObjectKey(r.FormValue("folder"), media.Extension(mimeType, header.Filename))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		objectURL, err := deps.StorageService.UploadFile(r.Context(), key, storage.File{
			Name:     header.Filename,
			MimeType: mimeType,
			Data:     data,
		}, storage.UploadOptions{})
		if err != nil {
			resp.RespondError(w, r, storageError(err))
			return
		}

		logx.Info("Media uploaded",
			"operator_id", operatorID(r),
			"category", category.Name,
			"key", key,
			"mime_type", mimeType,
		)

		resp.RespondCreated(w, r, MediaAsset{
			Key:       key,
			URL:       objectURL,
			Name:      header.Filename,
			MimeType:  mimeType,
			Size:      int64(len(data)),
			SizeHuman: humanize.IBytes(uint64(len(data))),
		})
	}
}

// HandleDeleteMedia deletes the object named by the "url" query parameter.
// Only objects created by HandleUploadMedia may be deleted. A missing object is
// reported as deleted=false, not as an error.
func HandleDeleteMedia(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		objectURL, customErr := req.RequiredQuery(r, "url")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		key, ok := deps.StorageService.KeyFor(objectURL)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrForeignObjectURL))
			return
		}
		if !media.IsManagedKey(key) {
			resp.RespondError(w, r, errs.NewError(errs.ErrObjectNotManaged))
			return
		}

		deleted := deps.StorageService.DeleteFile(r.Context(), objectURL)
		logx.Info("Media delete requested", "operator_id", operatorID(r), "key", key, "deleted", deleted)

		resp.RespondSuccess(w, r, map[string]bool{"deleted": deleted})
	}
}

// HandleListMedia lists the objects below the optional "prefix" query parameter.
func HandleListMedia(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		files := deps.StorageService.ListFiles(r.Context(), prefix)

		resp.RespondSuccess(w, r, map[string]any{
			"prefix": prefix,
			"files":  files,
		})
	}
}

// HandleMediaExists reports whether the object named by the "url" query parameter is publicly readable.
func HandleMediaExists(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		objectURL, customErr := req.RequiredQuery(r, "url")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if _, ok := deps.StorageService.KeyFor(objectURL); !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrForeignObjectURL))
			return
		}

		resp.RespondSuccess(w, r, map[string]bool{"exists": deps.StorageService.FileExists(r.Context(), objectURL)})
	}
}

// HandleStorageHealth checks the object store with a signed bucket HEAD.
func HandleStorageHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]bool{"reachable": deps.StorageService.TestConnection(r.Context())})
	}
}

func operatorID(r *http.Request) string {
	if payload := jwt.GetPayloadFromContext(r); payload != nil {
		return payload.ID
	}
	return ""
}
