package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bububa/meal-agents/meal"
	"github.com/bububa/meal-agents/service"
	"github.com/bububa/meal-agents/store"
)

const runIDHeader = "X-Run-ID"

// errBadRequest marks errors caused by the request itself
var errBadRequest = errors.New("bad request")

// analyzeRequest is the JSON form of an analyze call
type analyzeRequest struct {
	// Image base64 payload, optionally a data URL
	Image    string `json:"image"`
	MimeType string `json:"mimeType,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type listResponse struct {
	Meals  []store.Record `json:"meals"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	req, err := s.decodeAnalyze(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("image larger than %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	run, err := s.svc.Analyze(r.Context(), req)
	if run != nil {
		w.Header().Set(runIDHeader, run.ID)
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, run.Report)
}

func (s *Server) decodeAnalyze(r *http.Request) (meal.Request, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		data     []byte
		mimeType string
		hint     string
	)
	switch contentType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
			return meal.Request{}, err
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return meal.Request{}, fmt.Errorf("form field image: %w", err)
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			return meal.Request{}, err
		}
		mimeType = header.Header.Get("Content-Type")
		hint = r.FormValue("hint")
	case "application/json":
		var body analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return meal.Request{}, fmt.Errorf("decode request: %w", err)
		}
		encoded := body.Image
		if strings.HasPrefix(encoded, "data:") {
			if idx := strings.Index(encoded, ","); idx >= 0 {
				if body.MimeType == "" {
					body.MimeType = strings.TrimSuffix(strings.TrimPrefix(encoded[:idx], "data:"), ";base64")
				}
				encoded = encoded[idx+1:]
			}
		}
		var err error
		if data, err = base64.StdEncoding.DecodeString(encoded); err != nil {
			return meal.Request{}, fmt.Errorf("decode image: %w", err)
		}
		mimeType, hint = body.MimeType, body.Hint
	default:
		return meal.Request{}, fmt.Errorf("%w: unsupported content type %q", errBadRequest, contentType)
	}
	img, err := meal.NewMealImage(data, mimeType)
	if err != nil {
		return meal.Request{}, err
	}
	return meal.Request{Image: img, Hint: strings.TrimSpace(hint)}, nil
}

func (s *Server) listMeals(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit = min(max(limit, 1), maxListLimit)
	offset = max(offset, 0)
	list, total, err := s.svc.Meals(r.Context(), limit, offset)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	if list == nil {
		list = []store.Record{}
	}
	writeJSON(w, http.StatusOK, listResponse{Meals: list, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) getMeal(w http.ResponseWriter, r *http.Request) {
	record, err := s.svc.Meal(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) deleteMeal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteMeal(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getMealImage(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := s.svc.Image(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	defer rc.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("stream image failed", "error", err)
	}
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stats())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return n, nil
}

// statusOf maps service and pipeline errors to HTTP status codes
func statusOf(err error) int {
	var (
		outputErr    *meal.StageOutputError
		upstreamErr  *meal.UpstreamUnavailableError
		cancelledErr *meal.CancelledError
	)
	switch {
	case errors.Is(err, meal.ErrInvalidImage), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrNoImage):
		return http.StatusNotFound
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusNotImplemented
	case errors.As(err, &outputErr):
		return http.StatusBadGateway
	case errors.As(err, &upstreamErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &cancelledErr):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	if stage, ok := meal.StageOf(err); ok {
		resp.Stage = stage.String()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
