package directory

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"

	"fasal/models"
	"fasal/utils"
)

// Publisher is the slice of the realtime bus the heartbeat needs.
type Publisher interface {
	PublishToUser(userID, name string, data interface{}) error
}

type Handlers struct {
	Store *Mongo
	Bus   Publisher
}

func NewHandlers(store *Mongo, bus Publisher) *Handlers {
	return &Handlers{Store: store, Bus: bus}
}

var validStatuses = map[string]bool{
	models.StatusAvailable: true,
	models.StatusOnline:    true,
	models.StatusBusy:      true,
	models.StatusOffline:   true,
}

// CreateProfile registers the caller as a worker or group leader.
func (h *Handlers) CreateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input struct {
		Name   string `json:"name"`
		Role   string `json:"role"`
		Skills string `json:"skills"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.Role != models.RoleWorker && input.Role != models.RoleLeader {
		utils.RespondWithError(w, http.StatusBadRequest, "Role must be worker or leader")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Store.Get(ctx, userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if existing != nil {
		utils.RespondWithError(w, http.StatusConflict, "Worker profile already exists")
		return
	}

	c := models.Candidate{
		UserID:    userID,
		Name:      input.Name,
		Role:      input.Role,
		Status:    models.StatusOffline,
		Skills:    input.Skills,
		CreatedAt: time.Now(),
	}
	if _, err := h.Store.Workers.InsertOne(ctx, c); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, c)
}

// SetAvailability is the candidate's own status toggle.
func (h *Handlers) SetAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || !validStatuses[input.Status] {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Store.Workers.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"status": input.Status, "updatedAt": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Worker profile not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "status": input.Status})
}

// PingLocation records the candidate's position and mirrors it to the
// candidate's room so tracking clients can follow along. The event is
// best effort; the write is what matters.
func (h *Handlers) PingLocation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input struct {
		Latitude  *float64 `json:"lat"`
		Longitude *float64 `json:"lon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Latitude == nil || input.Longitude == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid coordinates")
		return
	}
	if *input.Latitude < -90 || *input.Latitude > 90 || *input.Longitude < -180 || *input.Longitude > 180 {
		utils.RespondWithError(w, http.StatusBadRequest, "Coordinates out of range")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Store.Workers.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"lat": input.Latitude, "lon": input.Longitude, "updatedAt": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Worker profile not found")
		return
	}

	if err := h.Bus.PublishToUser(userID, models.EventLocation, models.LocationPayload{
		UserID:    userID,
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
	}); err != nil {
		log.Printf("location event for %s dropped: %v", userID, err)
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}

// GetMyProfile returns the caller's candidate record.
func (h *Handlers) GetMyProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Store.Get(ctx, userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if c == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Worker profile not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, c)
}
