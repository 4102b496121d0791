package services

import (
	"errors"
	"log/slog"
	"net/http"
	"tracehub/trace/auth"
	"tracehub/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthService struct {
	db       *gorm.DB
	identity *auth.Identity
}

func (s *AuthService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/login", s.Login)

	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var params loginRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	token, err := s.identity.Login(params.Username, params.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.WriteErrorDetail(w, err.Error(), http.StatusUnauthorized)
			return
		}
		utils.WriteErrorDetail(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("user logged in", "username", params.Username)

	utils.WriteJsonResponse(w, loginResponse{AccessToken: token, TokenType: "bearer"})
}

type userInfo struct {
	Id       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		utils.WriteErrorDetail(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, userInfo{Id: user.Id, Username: user.Username, Role: string(user.Role)})
}
