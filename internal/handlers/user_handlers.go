package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tripplan_app_echo/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns the signed-in user
func (h *UserHandler) Me(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Lookup finds a user by email so they can be invited
func (h *UserHandler) Lookup(c echo.Context) error {
	if _, err := currentUserID(c); err != nil {
		return err
	}
	user, err := h.users.FindByEmail(c.Request().Context(), c.QueryParam("email"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":                user.ID,
		"nickname":          user.Nickname,
		"profile_image_url": user.ProfileImageURL,
	})
}
