package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/furnimall/furnimall_backend/models"
	"github.com/furnimall/furnimall_backend/services"
	"github.com/furnimall/furnimall_backend/utils"
)

type ChannelController struct {
	service *services.AllocationService
}

func NewChannelController(service *services.AllocationService) *ChannelController {
	return &ChannelController{service: service}
}

// CreateChannel creates a distribution channel under the system root or
// under an existing parent channel
func (cc *ChannelController) CreateChannel(c echo.Context) error {
	manufacturerID, err := primitive.ObjectIDFromHex(c.Param("mid"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid manufacturer ID",
		})
	}

	viewer, err := utils.GetViewerFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing credentials",
		})
	}

	var req models.CreateChannelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	created, err := cc.service.CreateChannel(c.Request().Context(), manufacturerID, viewer, req)
	if err != nil {
		return respondAllocationError(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Channel created successfully with code " + created.Code,
		Data:    created,
	})
}

// GetChannelDetail returns one channel with its children, subtree stats
// and the caller's permissions on it
func (cc *ChannelController) GetChannelDetail(c echo.Context) error {
	channelID, err := primitive.ObjectIDFromHex(c.Param("cid"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid channel ID",
		})
	}

	viewer, err := utils.GetViewerFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing credentials",
		})
	}

	detail, err := cc.service.GetChannelDetail(c.Request().Context(), channelID, viewer)
	if err != nil {
		return respondAllocationError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Channel retrieved successfully",
		Data:    detail,
	})
}

// UpdateChannel updates a channel's fields; a commissionRate change is
// re-validated against the parent budget and the children floor
func (cc *ChannelController) UpdateChannel(c echo.Context) error {
	channelID, err := primitive.ObjectIDFromHex(c.Param("cid"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid channel ID",
		})
	}

	viewer, err := utils.GetViewerFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing credentials",
		})
	}

	var req models.UpdateChannelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	channel, err := cc.service.UpdateChannel(c.Request().Context(), channelID, viewer, req)
	if err != nil {
		return respondAllocationError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Channel updated successfully",
		Data:    channel,
	})
}

// DeleteChannel removes a leaf channel and returns its rate to the
// parent's or root's budget
func (cc *ChannelController) DeleteChannel(c echo.Context) error {
	channelID, err := primitive.ObjectIDFromHex(c.Param("cid"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid channel ID",
		})
	}

	viewer, err := utils.GetViewerFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing credentials",
		})
	}

	if err := cc.service.DeleteChannel(c.Request().Context(), channelID, viewer); err != nil {
		return respondAllocationError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Channel deleted successfully",
	})
}
