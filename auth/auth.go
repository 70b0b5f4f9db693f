package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"fasal/db"
	"fasal/globals"
	"fasal/middleware"
	"fasal/models"
	"fasal/rdx"
	"fasal/utils"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed), err
}

func verifyPassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// generateTokens produces an access and refresh token pair, storing the
// hashed refresh token in Redis keyed by userID:jti.
func generateTokens(user models.User) (accessToken, refreshToken string, err error) {
	jti := uuid.NewString()
	now := time.Now()

	claims := middleware.Claims{
		Username: user.Username,
		UserID:   user.UserID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	if err != nil {
		return "", "", err
	}

	raw := make([]byte, 32)
	if _, err = rand.Read(raw); err != nil {
		return "", "", err
	}
	refreshToken = hex.EncodeToString(raw)
	hashedRT := sha256.Sum256([]byte(refreshToken))

	rtKey := "refresh:" + user.UserID + ":" + jti
	if err = rdx.SetWithExpiry(rtKey, hex.EncodeToString(hashedRT[:]), refreshTokenTTL); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// Register creates a new user account.
func Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || len(req.Password) < 6 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var existing models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"username": req.Username}).Decode(&existing)
	if err == nil {
		utils.RespondWithError(w, http.StatusConflict, "User already exists")
		return
	} else if err != mongo.ErrNoDocuments {
		log.Printf("register: db error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("register: bcrypt error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not hash password")
		return
	}

	user := models.User{
		UserID:       uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hashed,
		Phone:        req.Phone,
		Role:         []string{"user"},
		CreatedAt:    time.Now(),
	}
	if _, err := db.UserCollection.InsertOne(ctx, user); err != nil {
		log.Printf("register: insert error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not create user")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"userid": user.UserID})
}

// Login verifies credentials and hands out a token pair.
func Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"username": req.Username}).Decode(&user)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := verifyPassword(user.PasswordHash, req.Password); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	access, refresh, err := generateTokens(user)
	if err != nil {
		log.Printf("login: token error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not issue tokens")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"token":        access,
		"refreshToken": refresh,
		"userid":       user.UserID,
		"username":     user.Username,
	})
}

// RefreshToken exchanges a valid refresh token for a fresh pair.
func RefreshToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		UserID       string `json:"userid"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.RefreshToken == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	hash := sha256.Sum256([]byte(req.RefreshToken))
	want := hex.EncodeToString(hash[:])

	iter := rdx.Conn.Scan(globals.Ctx, 0, "refresh:"+req.UserID+":*", 100).Iterator()
	var matchedKey string
	for iter.Next(globals.Ctx) {
		key := iter.Val()
		stored, _ := rdx.RdxGet(key)
		if stored == want {
			matchedKey = key
			break
		}
	}
	if matchedKey == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Refresh token not found or expired")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": req.UserID}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unknown user")
		return
	}

	// Rotate: the old refresh token dies with its key.
	_ = rdx.RdxDel(matchedKey)

	access, refresh, err := generateTokens(user)
	if err != nil {
		log.Printf("refresh: token error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not issue tokens")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"token":        access,
		"refreshToken": refresh,
	})
}

// Logout drops all of the caller's refresh tokens.
func Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	iter := rdx.Conn.Scan(globals.Ctx, 0, "refresh:"+userID+":*", 100).Iterator()
	for iter.Next(globals.Ctx) {
		_ = rdx.RdxDel(iter.Val())
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}
