package handlers

import (
	"net/http"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/service"
	"time"

	"go.uber.org/zap"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type UserHandler struct {
	users    UserService
	sessions SessionStore
	cookie   CookieConfig
}

func NewUserHandler(users UserService, sessions SessionStore, cookie CookieConfig) *UserHandler {
	return &UserHandler{
		users:    users,
		sessions: sessions,
		cookie:   cookie,
	}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	in := service.RegisterInput{
		Username: f.required("username"),
		Password: f.required("password"),
		Email:    f.required("email"),
	}
	if !f.valid(w) {
		return
	}

	u, err := h.users.Register(r.Context(), in)
	if err != nil {
		handleError(w, r, err, "register_user")
		return
	}

	logOut("Пользователь зарегистрирован", start, zap.Int64("user_id", u.ID))
	responseWithMessage(w, "регистрация прошла успешно")
}

// Login создаёт новую сессию. Прежняя сессия клиента, если была, удаляется.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	username := f.required("username")
	password := f.required("password")
	if !f.valid(w) {
		return
	}

	u, err := h.users.Login(r.Context(), username, password)
	if err != nil {
		handleError(w, r, err, "login")
		return
	}

	if old, ok := middleware.GetIdentity(r.Context()); ok {
		if err := h.sessions.Delete(r.Context(), old.SessionID); err != nil {
			logger.Warn("HTTP: Не удалось удалить прежнюю сессию", zap.Error(err))
		}
	}

	sess, err := h.sessions.Create(r.Context(), u.ID, u.Username)
	if err != nil {
		handleError(w, r, err, "create_session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	logOut("Пользователь вошёл", start, zap.Int64("user_id", u.ID))
	responseWithMessage(w, "вход выполнен", toPayload("user", u))
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if identity, ok := middleware.GetIdentity(r.Context()); ok {
		if err := h.sessions.Delete(r.Context(), identity.SessionID); err != nil {
			handleError(w, r, err, "logout")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	logOut("Пользователь вышел", start)
	responseWithMessage(w, "выход выполнен")
}

func (h *UserHandler) Info(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		handleError(w, r, err, "user_info")
		return
	}

	logOut("Данные пользователя получены", start, zap.Int64("user_id", userID))
	responseWithJSON(w, http.StatusOK, toPayload("user", u))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	in := service.UpdateUserInput{
		Username: f.required("username"),
		Email:    f.required("email"),
		Password: f.optional("password"),
	}
	if !f.valid(w) {
		return
	}

	u, err := h.users.Update(r.Context(), userID, in)
	if err != nil {
		handleError(w, r, err, "update_user")
		return
	}

	logOut("Пользователь обновлён", start, zap.Int64("user_id", userID))
	responseWithMessage(w, "данные обновлены", toPayload("user", u))
}

func (h *UserHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	username := f.required("username")
	if !f.valid(w) {
		return
	}

	exists, err := h.users.UsernameExists(r.Context(), username)
	if err != nil {
		handleError(w, r, err, "check_username")
		return
	}

	logOut("Проверка имени пользователя", start, zap.Bool("exists", exists))
	responseWithJSON(w, http.StatusOK, toPayload("exists", exists))
}

func (h *UserHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	email := f.required("email")
	if !f.valid(w) {
		return
	}

	exists, err := h.users.EmailExists(r.Context(), email)
	if err != nil {
		handleError(w, r, err, "check_email")
		return
	}

	logOut("Проверка email", start, zap.Bool("exists", exists))
	responseWithJSON(w, http.StatusOK, toPayload("exists", exists))
}
