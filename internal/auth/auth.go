package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"Strata/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	loginKey  contextKey = "userLogin"
)

const (
	cookieName = "session_token"
	sessionTTL = 30 * 24 * time.Hour
)

// UserStore is the account storage the handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, login, email, password string) (string, error)
	GetByLogin(ctx context.Context, login string) (string, string, error)
}

type Authenv struct {
	JWTkey []byte
	Repo   UserStore
	// Secure marks the session cookie HTTPS-only.
	Secure bool
}

type Loginrequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type Registerrequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// WithUser stores the authenticated engineer in ctx.
func WithUser(ctx context.Context, userID, login string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, loginKey, login)
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// Login returns the authenticated engineer's login, or "" outside AuthMiddleware.
func Login(ctx context.Context) string {
	v, _ := ctx.Value(loginKey).(string)
	return v
}

func (env *Authenv) parse(tokenString string) (jwt.MapClaims, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return env.JWTkey, nil
	})
	if err != nil || !token.Valid {
		logger.ForComponent("auth").Debug("token rejected", "error", err)
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	return claims, ok
}

func (env *Authenv) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieName)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		claims, ok := env.parse(cookie.Value)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		userID, _ := claims["user_id"].(string)
		login, _ := claims["login"].(string)
		if userID == "" || login == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, login)))
	})
}

// NewToken signs a session token for the engineer.
func (env *Authenv) NewToken(userID, login string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"login":   login,
		"exp":     time.Now().Add(sessionTTL).Unix(),
	})
	return token.SignedString(env.JWTkey)
}

func (env *Authenv) addCookie(w http.ResponseWriter, userID, login string) error {
	tokenString, err := env.NewToken(userID, login)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    tokenString,
		Expires:  time.Now().Add(sessionTTL),
		Path:     "/",
		HttpOnly: true,
		Secure:   env.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (env *Authenv) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.ForComponent("auth")
	var req Registerrequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	req.Email = strings.TrimSpace(req.Email)
	if req.Login == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Login, email and password required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 6 {
		http.Error(w, "Password too short", http.StatusBadRequest)
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}
	id, err := env.Repo.CreateUser(r.Context(), req.Login, req.Email, hashedPassword)
	if err != nil {
		log.Warn("create user failed", "login", req.Login, "error", err)
		http.Error(w, "User already exists or DB error", http.StatusConflict)
		return
	}
	if err := env.addCookie(w, id, req.Login); err != nil {
		log.Error("sign token failed", "error", err)
		http.Error(w, "Error creating session", http.StatusInternalServerError)
		return
	}
	log.Info("engineer registered", "login", req.Login)
	w.WriteHeader(http.StatusCreated)
	w.Write([]byte("Registration successful"))
}

func (env *Authenv) AuthHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.ForComponent("auth")
	var req Loginrequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		http.Error(w, "Login and password required", http.StatusBadRequest)
		return
	}

	id, storedHash, err := env.Repo.GetByLogin(r.Context(), req.Login)
	if err != nil {
		log.Error("lookup user failed", "login", req.Login, "error", err)
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	if id == "" || bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.Password)) != nil {
		http.Error(w, "Invalid login or password", http.StatusUnauthorized)
		return
	}
	if err := env.addCookie(w, id, req.Login); err != nil {
		log.Error("sign token failed", "error", err)
		http.Error(w, "Error creating session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Authentication successful"))
}

// MeHandler reports the engineer behind the session.
func (env *Authenv) MeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"id":    UserID(r.Context()),
		"login": Login(r.Context()),
	})
}

func (env *Authenv) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   env.Secure,
	})
	w.WriteHeader(http.StatusNoContent)
}
