package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ai-health-advisor/internal/advisor"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/logger"
)

var validate = validator.New()

type handler struct {
	svc       Service
	maxUpload int64
	log       *logger.Logger
}

type addHistoryRequest struct {
	ReportType string `json:"report_type" validate:"required,oneof=Blood 'Workout Plan' 'Meal Plan' 'Health Recommendation' Symptoms Scan"`
	Text       string `json:"text" validate:"required,max=20000"`
}

type profileRequest struct {
	Profile health.Profile `json:"profile"`
	Goal    string         `json:"goal" validate:"max=500"`
}

type nutritionRequest struct {
	Save bool `json:"save"`
}

type workoutRequest struct {
	Nutrition *health.NutritionRecommendation `json:"nutrition,omitempty"`
	Save      bool                            `json:"save"`
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type historyResponse struct {
	Records []history.Record `json:"records"`
	Context string           `json:"context"`
}

// decode reads an optional JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return errors.New("invalid request body: " + err.Error())
		}
	}
	if err := validate.Struct(dst); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}

// validationMessage renders validator failures as readable field messages.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation error: " + err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	sys := h.svc.SysHealth()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"alloc_mb":   sys.AllocMB,
		"goroutines": sys.Goroutines,
		"data_sizes": sys.DataSizes,
	})
}

func (h *handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	reportType := history.ReportType(r.FormValue("report_type"))
	if reportType == "" {
		reportType = history.ReportBlood
	}
	if err := validate.Var(string(reportType), "oneof=Blood 'Workout Plan' 'Meal Plan' 'Health Recommendation' Symptoms Scan"); err != nil {
		respondError(w, http.StatusBadRequest, "invalid report_type")
		return
	}

	res, err := h.svc.IngestReport(r.Context(), userID, header.Filename, file, reportType)
	if err != nil {
		h.log.Error("Failed to ingest report", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to ingest report")
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (h *handler) listHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	records := h.svc.History(r.Context(), userID, r.URL.Query().Get("q"), limit)
	if records == nil {
		records = []history.Record{}
	}
	respondJSON(w, http.StatusOK, historyResponse{Records: records, Context: history.BuildContext(records)})
}

func (h *handler) addHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req addHistoryRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.svc.AddHistory(r.Context(), userID, history.ReportType(req.ReportType), req.Text) {
		respondError(w, http.StatusInternalServerError, "failed to store record")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]bool{"stored": true})
}

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	sp, err := h.svc.Profile(r.Context(), userID)
	if errors.Is(err, health.ErrProfileNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log.Error("Failed to load profile", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, sp)
}

func (h *handler) putProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req profileRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.SaveProfile(r.Context(), userID, req.Profile, req.Goal); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondError(w, http.StatusBadRequest, validationMessage(verrs))
			return
		}
		h.log.Error("Failed to save profile", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"profile": req.Profile,
		"goal":    req.Goal,
		"bmi":     req.Profile.BMI(),
	})
}

func (h *handler) nutrition(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req nutritionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.svc.Nutrition(r.Context(), userID, req.Save)
	if err != nil {
		h.log.Error("Nutrition plan failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load patient context")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *handler) workout(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req workoutRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := h.svc.Workout(r.Context(), userID, req.Nutrition, req.Save)
	if err != nil {
		h.log.Error("Workout plan failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load patient context")
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req chatRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	reply, err := h.svc.Respond(r.Context(), userID, req.Message)
	if err != nil {
		h.log.Error("Chat failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load patient context")
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

func (h *handler) action(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	action := advisor.Action(chi.URLParam(r, "action"))
	if !slices.Contains(advisor.Actions(), action) {
		respondError(w, http.StatusNotFound, "Unknown action: "+string(action))
		return
	}
	res, err := h.svc.RunAction(r.Context(), userID, action)
	if err != nil {
		h.log.Error("Action failed", "user_id", userID, "action", string(action), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load patient context")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
