package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tripplan_app_echo/internal/services"
)

// ScheduleHandler exposes the ordered schedule of a plan
type ScheduleHandler struct {
	schedules *services.ScheduleService
}

func NewScheduleHandler(schedules *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

func (h *ScheduleHandler) ListSchedules(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	schedules, err := h.schedules.List(c.Request().Context(), userID, planID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, schedules)
}

func (h *ScheduleHandler) AddSchedule(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	var req AddScheduleRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	schedule, err := h.schedules.Add(c.Request().Context(), userID, planID, services.AddScheduleInput{
		DayNumber:  req.DayNumber,
		OrderIndex: req.OrderIndex,
		PlaceID:    req.PlaceID,
		Place:      req.PlaceRef,
		Memo:       req.Memo,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, schedule)
}

func (h *ScheduleHandler) UpdateSchedule(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	scheduleID, err := paramUint(c, "scheduleId")
	if err != nil {
		return err
	}
	var req UpdateScheduleRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	schedule, err := h.schedules.Update(c.Request().Context(), userID, planID, scheduleID,
		services.UpdateScheduleInput{PlaceID: req.PlaceID, Memo: req.Memo})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, schedule)
}

func (h *ScheduleHandler) DeleteSchedule(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	scheduleID, err := paramUint(c, "scheduleId")
	if err != nil {
		return err
	}
	if err := h.schedules.Delete(c.Request().Context(), userID, planID, scheduleID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ScheduleHandler) MoveSchedule(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	scheduleID, err := paramUint(c, "scheduleId")
	if err != nil {
		return err
	}
	var req MoveScheduleRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.TargetDay == nil || req.TargetOrder == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "target_day and target_order are required")
	}

	schedule, err := h.schedules.Move(c.Request().Context(), userID, planID, scheduleID,
		services.MoveScheduleInput{TargetDay: *req.TargetDay, TargetOrder: *req.TargetOrder})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, schedule)
}

// RegisterRoutes mounts every plan, member and schedule route on g
func RegisterRoutes(g *echo.Group, plans *PlanHandler, members *MemberHandler, schedules *ScheduleHandler, users *UserHandler) {
	g.GET("/me", users.Me)
	g.GET("/users", users.Lookup)

	g.GET("/plans", plans.ListPlans)
	g.POST("/plans", plans.CreatePlan)
	g.GET("/plans/invitations", members.ListInvitations)
	g.GET("/plans/:planId", plans.GetPlan)
	g.PATCH("/plans/:planId", plans.UpdatePlan)
	g.DELETE("/plans/:planId", plans.DeletePlan)
	g.PATCH("/plans/:planId/visibility", plans.UpdateVisibility)
	g.POST("/plans/:planId/copy", plans.CopyPlan)

	g.GET("/plans/:planId/members", members.ListMembers)
	g.POST("/plans/:planId/members", members.Invite)
	g.PATCH("/plans/:planId/members/accept", members.Accept)
	g.DELETE("/plans/:planId/members/me", members.Leave)
	g.PATCH("/plans/:planId/members/:userId", members.ChangeRole)
	g.DELETE("/plans/:planId/members/:userId", members.Kick)

	g.GET("/plans/:planId/schedules", schedules.ListSchedules)
	g.POST("/plans/:planId/schedules", schedules.AddSchedule)
	g.PATCH("/plans/:planId/schedules/:scheduleId", schedules.UpdateSchedule)
	g.DELETE("/plans/:planId/schedules/:scheduleId", schedules.DeleteSchedule)
	g.PATCH("/plans/:planId/schedules/:scheduleId/move", schedules.MoveSchedule)
}
