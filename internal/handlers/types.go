package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"tripplan_app_echo/internal/models"
	"tripplan_app_echo/internal/services"
)

const dateLayout = "2006-01-02"

// PlanRequest is the body of plan create and update calls
type PlanRequest struct {
	Title     *string  `json:"title"`
	Regions   []string `json:"regions"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	IsPublic  *bool    `json:"is_public"`
}

type VisibilityRequest struct {
	IsPublic *bool `json:"is_public"`
}

// InviteRequest names the invitee by id or by email
type InviteRequest struct {
	UserID uint              `json:"user_id"`
	Email  string            `json:"email"`
	Role   models.MemberRole `json:"role"`
}

type RoleRequest struct {
	Role models.MemberRole `json:"role"`
}

// AddScheduleRequest carries either an existing place id or a place reference
type AddScheduleRequest struct {
	DayNumber  int   `json:"day_number"`
	OrderIndex *int  `json:"order_index"`
	PlaceID    *uint `json:"place_id"`
	services.PlaceRef
	Memo string `json:"memo"`
}

type UpdateScheduleRequest struct {
	PlaceID *uint   `json:"place_id"`
	Memo    *string `json:"memo"`
}

type MoveScheduleRequest struct {
	TargetDay   *int `json:"target_day"`
	TargetOrder *int `json:"target_order"`
}

// currentUserID returns the internal user id stored by the auth middleware
func currentUserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok || id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	return id, nil
}

func paramUint(c echo.Context, name string) (uint, error) {
	raw := c.Param(name)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return uint(n), nil
}

func bindJSON(c echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// parseDate accepts an empty string as "unset"
func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", field))
	}
	return &t, nil
}
