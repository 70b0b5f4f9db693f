package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"

	"fasal/jobstore"
	"fasal/middleware"
	"fasal/utils"
)

type Handlers struct {
	Coordinator *Coordinator
	validate    *validator.Validate
}

func NewHandlers(c *Coordinator) *Handlers {
	return &Handlers{Coordinator: c, validate: validator.New()}
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

// CreateJob handles POST /api/jobs. The owner is always the caller.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input JobInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		utils.RespondWithError(w, http.StatusBadRequest, "Both coordinates or neither")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	job, err := h.Coordinator.CreateJobAndOffer(ctx, farmerID, input)
	if err != nil {
		log.Printf("create job: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, job)
}

// AcceptJob handles POST /api/jobs/:id/accept. A lost race is a normal
// 409 with a message the client can show as-is.
func (h *Handlers) AcceptJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	candidateID := utils.GetUserIDFromRequest(r)
	if candidateID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	outcome, err := h.Coordinator.AttemptAccept(ctx, ps.ByName("id"), candidateID)
	if err != nil {
		log.Printf("accept job: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to accept job")
		return
	}

	switch outcome {
	case AcceptOK:
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"result": "accepted"})
	case AcceptTaken:
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{
			"result": "alreadyTaken",
			"error":  "This job was already taken by another worker",
		})
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Job not found")
	}
}

// CancelJob handles POST /api/jobs/:id/cancel. Owner only.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// The farmer's display name travels in the cancelled event so the
	// worker's client can show a specific notice.
	farmerName := ""
	if claims, err := middleware.ValidateJWT(r.Header.Get("Authorization")); err == nil {
		farmerName = claims.Username
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	err := h.Coordinator.CancelJob(ctx, ps.ByName("id"), farmerID, farmerName)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
	case err == jobstore.ErrNotFound:
		utils.RespondWithError(w, http.StatusNotFound, "Job not found")
	case err == ErrForbidden:
		utils.RespondWithError(w, http.StatusForbidden, "Only the job owner can cancel")
	case err == ErrConflict:
		utils.RespondWithError(w, http.StatusConflict, "Job is already completed")
	default:
		log.Printf("cancel job: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to cancel job")
	}
}

// ReopenJob handles POST /api/jobs/:id/reopen.
func (h *Handlers) ReopenJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	err := h.Coordinator.Reopen(ctx, ps.ByName("id"), farmerID)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
	case err == jobstore.ErrNotFound:
		utils.RespondWithError(w, http.StatusNotFound, "Job not found")
	case err == ErrForbidden:
		utils.RespondWithError(w, http.StatusForbidden, "Only the job owner can reopen")
	case err == ErrConflict:
		utils.RespondWithError(w, http.StatusConflict, "Job is not currently matched")
	default:
		log.Printf("reopen job: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to reopen job")
	}
}

// UpdateJobStatus handles PATCH /api/jobs/:id/status, the
// administrative transition outside the accept race.
func (h *Handlers) UpdateJobStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if utils.GetUserIDFromRequest(r) == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Status == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	err := h.Coordinator.UpdateStatus(ctx, ps.ByName("id"), input.Status)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
	case err == jobstore.ErrNotFound:
		utils.RespondWithError(w, http.StatusNotFound, "Job not found")
	case err == ErrConflict:
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown status")
	default:
		log.Printf("update status: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update status")
	}
}

// ListJobs handles GET /api/jobs with status/farmerId filters.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := requestContext(r)
	defer cancel()

	jobs, err := h.Coordinator.ListJobs(ctx, jobstore.Filter{
		Status:   r.URL.Query().Get("status"),
		FarmerID: r.URL.Query().Get("farmerId"),
	})
	if err != nil {
		log.Printf("list jobs: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, jobs)
}

// GetJob handles GET /api/jobs/:id.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := requestContext(r)
	defer cancel()

	job, err := h.Coordinator.Store.GetJob(ctx, ps.ByName("id"))
	if err == jobstore.ErrNotFound {
		utils.RespondWithError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		log.Printf("get job: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, job)
}

// Arrival handles POST /api/jobs/:id/arrival.
func (h *Handlers) Arrival(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	candidateID := utils.GetUserIDFromRequest(r)
	if candidateID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	err := h.Coordinator.Arrival(ctx, ps.ByName("id"), candidateID)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
	case err == jobstore.ErrNotFound:
		utils.RespondWithError(w, http.StatusNotFound, "Job not found")
	default:
		log.Printf("arrival: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to publish arrival")
	}
}
