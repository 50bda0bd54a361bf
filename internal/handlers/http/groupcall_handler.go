package http

import (
	"net/http"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"
	"voxhub/pkg/errors"

	"github.com/gin-gonic/gin"
)

// GroupCallHandler serves the read-only group-call projections over REST.
// Mutations go through the websocket so every member sees the same event
// stream; the REST surface only exists for list/detail rendering.
type GroupCallHandler struct {
	groupCalls ports.GroupCallService
}

func NewGroupCallHandler(groupCalls ports.GroupCallService) *GroupCallHandler {
	return &GroupCallHandler{groupCalls: groupCalls}
}

func (h *GroupCallHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/group-calls", h.ListGroupCalls)
	api.GET("/group-calls/:id", h.GetGroupCall)
}

func (h *GroupCallHandler) ListGroupCalls(c *gin.Context) {
	identityID := c.MustGet("identity_id").(domain.IdentityID)

	views, err := h.groupCalls.List(c.Request.Context(), identityID)
	if err != nil {
		appErr := errors.FromDomain(err)
		c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group_calls": views,
	})
}

func (h *GroupCallHandler) GetGroupCall(c *gin.Context) {
	identityID := c.MustGet("identity_id").(domain.IdentityID)
	groupID := domain.GroupID(c.Param("id"))

	view, err := h.groupCalls.Get(c.Request.Context(), groupID)
	if err != nil {
		appErr := errors.FromDomain(err)
		c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
		return
	}

	// Only parties to the call may read it.
	visible := false
	for _, p := range view.Participants {
		if p.IdentityID == identityID {
			visible = true
			break
		}
	}
	if !visible {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this call"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group_call": view,
	})
}
