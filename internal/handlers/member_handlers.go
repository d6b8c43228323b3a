package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tripplan_app_echo/internal/services"
)

type MemberHandler struct {
	members *services.MemberService
	users   *services.UserService
}

func NewMemberHandler(members *services.MemberService, users *services.UserService) *MemberHandler {
	return &MemberHandler{members: members, users: users}
}

func (h *MemberHandler) ListMembers(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	members, err := h.members.ListMembers(c.Request().Context(), userID, planID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, members)
}

func (h *MemberHandler) ListInvitations(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	invitations, err := h.members.ListInvitations(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invitations)
}

// Invite adds an INVITED member, addressed by user id or email
func (h *MemberHandler) Invite(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	var req InviteRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	targetID := req.UserID
	if targetID == 0 {
		if req.Email == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "user_id or email is required")
		}
		target, err := h.users.FindByEmail(ctx, req.Email)
		if err != nil {
			return err
		}
		targetID = target.ID
	}

	member, err := h.members.Invite(ctx, userID, planID, targetID, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, member)
}

func (h *MemberHandler) Accept(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	if err := h.members.Accept(c.Request().Context(), userID, planID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MemberHandler) Leave(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	if err := h.members.Leave(c.Request().Context(), userID, planID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MemberHandler) ChangeRole(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	targetID, err := paramUint(c, "userId")
	if err != nil {
		return err
	}
	var req RoleRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.members.ChangeRole(c.Request().Context(), userID, planID, targetID, req.Role); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MemberHandler) Kick(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := paramUint(c, "planId")
	if err != nil {
		return err
	}
	targetID, err := paramUint(c, "userId")
	if err != nil {
		return err
	}
	if err := h.members.Kick(c.Request().Context(), userID, planID, targetID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
