package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tripplan_app_echo/internal/services"
)

type PlanHandler struct {
	plans *services.PlanService
}

func NewPlanHandler(plans *services.PlanService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// ListPlans returns the plans the caller has joined
func (h *PlanHandler) ListPlans(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	plans, err := h.plans.ListMyPlans(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *PlanHandler) CreatePlan(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req PlanRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return err
	}

	in := services.PlanInput{Regions: req.Regions, IsPublic: req.IsPublic}
	if start != nil {
		in.StartDate = *start
	}
	if end != nil {
		in.EndDate = *end
	}
	plan, err := h.plans.CreatePlan(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, plan)
}

func (h *PlanHandler) GetPlan(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	plan, err := h.plans.GetPlanDetail(c.Request().Context(), userID, planID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) UpdatePlan(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	var req PlanRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	patch := services.PlanPatch{Title: req.Title, Regions: req.Regions, IsPublic: req.IsPublic}
	if patch.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
		return err
	}
	if patch.EndDate, err = parseDate("end_date", req.EndDate); err != nil {
		return err
	}

	plan, err := h.plans.UpdatePlan(c.Request().Context(), userID, planID, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) UpdateVisibility(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	var req VisibilityRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.IsPublic == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "is_public is required")
	}
	if err := h.plans.UpdateVisibility(c.Request().Context(), userID, planID, *req.IsPublic); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"is_public": *req.IsPublic})
}

func (h *PlanHandler) DeletePlan(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	if err := h.plans.DeletePlan(c.Request().Context(), userID, planID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PlanHandler) CopyPlan(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	plan, err := h.plans.CopyPlan(c.Request().Context(), userID, planID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, plan)
}
