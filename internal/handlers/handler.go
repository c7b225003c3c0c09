package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/klurigast/griffel/internal/app"
	"github.com/klurigast/griffel/internal/metrics"
	"github.com/klurigast/griffel/internal/reconcile"
	"github.com/klurigast/griffel/internal/sheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type GradeHandler struct {
	service *app.Service
	engine  *reconcile.Engine
}

func NewGradeHandler(service *app.Service) *GradeHandler {
	return &GradeHandler{
		service: service,
		engine:  reconcile.NewEngine(service.Store),
	}
}

// Timed wraps a handler to record request duration with the final status.
func Timed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.APIRequestDuration.WithLabelValues(
			r.URL.Path,
			r.Method,
			strconv.Itoa(rec.status),
		).Observe(time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *GradeHandler) classroomID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("classroom"), 10, 64)
	if err != nil || id <= 0 {
		logger.Error.Printf("Failed to extract classroom from path: %s", r.URL.Path)
		http.Error(w, "Invalid classroom", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *GradeHandler) compositionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("composition"), 10, 64)
	if err != nil || id <= 0 {
		logger.Error.Printf("Failed to extract composition from path: %s", r.URL.Path)
		http.Error(w, "Invalid composition", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// identify resolves the caller and checks their token. Writes 401 on failure.
func (h *GradeHandler) identify(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := h.service.Identify(r)
	if err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func (h *GradeHandler) requireTeacher(w http.ResponseWriter, r *http.Request, classroomID int64) (int64, bool) {
	userID, ok := h.identify(w, r)
	if !ok {
		return 0, false
	}
	teaching, err := h.service.IsTeacher(classroomID, userID)
	if err != nil {
		logger.Error.Printf("Role lookup failed: %v", err)
		http.Error(w, "Failed to check permissions", http.StatusInternalServerError)
		return 0, false
	}
	if !teaching {
		http.Error(w, "Teacher role required", http.StatusForbidden)
		return 0, false
	}
	return userID, true
}

// readUpload extracts the xlsx payload from the multipart field "excel",
// bounded by the configured upload limit.
func (h *GradeHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.service.Config.API.UploadMaxBytes)

	file, header, err := r.FormFile("excel")
	if err != nil {
		logger.Error.Printf("Failed to read upload: %v", err)
		http.Error(w, "Missing excel file in request", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && ct != xlsxContentType && ct != "application/octet-stream" {
		http.Error(w, "Only xlsx uploads are supported", http.StatusBadRequest)
		return nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error.Printf("Failed to read upload body: %v", err)
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(data)
}

// writeEngineError maps reconciliation failures onto HTTP statuses. Sheet
// header mismatches count as bad requests.
func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, sheet.ErrHeaderMismatch) {
		writeErrorBody(w, http.StatusBadRequest, "InvalidFormat", err.Error())
		return
	}

	var status int
	switch reconcile.KindOf(err) {
	case reconcile.KindValidation:
		status = http.StatusBadRequest
	case reconcile.KindConflict:
		status = http.StatusConflict
	case reconcile.KindNotFound:
		status = http.StatusNotFound
	default:
		logger.Error.Printf("ERROR: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeErrorBody(w, status, reconcile.CodeOf(err), err.Error())
}

func writeErrorBody(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  code,
		"error": msg,
	})
}
