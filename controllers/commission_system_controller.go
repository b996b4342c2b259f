package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/furnimall/furnimall_backend/models"
	"github.com/furnimall/furnimall_backend/services"
	"github.com/furnimall/furnimall_backend/utils"
)

type CommissionSystemController struct {
	service *services.AllocationService
}

func NewCommissionSystemController(service *services.AllocationService) *CommissionSystemController {
	return &CommissionSystemController{service: service}
}

// GetCommissionSystem returns the system with its channel tree and
// stats, pruned for the caller
func (csc *CommissionSystemController) GetCommissionSystem(c echo.Context) error {
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

	overview, err := csc.service.GetSystemOverview(c.Request().Context(), manufacturerID, viewer)
	if err != nil {
		return respondAllocationError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission system retrieved successfully",
		Data:    overview,
	})
}

// CreateCommissionSystem creates the margin ledger for a manufacturer
func (csc *CommissionSystemController) CreateCommissionSystem(c echo.Context) error {
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

	var req models.CreateCommissionSystemRequest
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

	system, err := csc.service.CreateSystem(c.Request().Context(), manufacturerID, viewer, req)
	if err != nil {
		return respondAllocationError(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Commission system created successfully",
		Data:    system,
	})
}

// UpdateCommissionSystem updates the root rates and metadata
func (csc *CommissionSystemController) UpdateCommissionSystem(c echo.Context) error {
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

	var req models.UpdateCommissionSystemRequest
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

	system, err := csc.service.UpdateSystem(c.Request().Context(), manufacturerID, viewer, req)
	if err != nil {
		return respondAllocationError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission system updated successfully",
		Data:    system,
	})
}

// ArchiveCommissionSystem soft-disables the system; channels and their
// budgets stay in place
func (csc *CommissionSystemController) ArchiveCommissionSystem(c echo.Context) error {
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

	system, err := csc.service.ArchiveSystem(c.Request().Context(), manufacturerID, viewer)
	if err != nil {
		return respondAllocationError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission system archived successfully",
		Data:    system,
	})
}

// respondAllocationError maps the allocation error taxonomy onto HTTP
// statuses with messages the caller can act on.
func respondAllocationError(c echo.Context, err error) error {
	var budgetErr *utils.BudgetExceededError
	var floorErr *utils.BelowChildAllocationError
	var childrenErr *services.HasChildrenError
	var invariantErr *services.InvariantViolationError

	switch {
	case errors.As(err, &budgetErr):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Commission rate exceeds the available budget: at most %.2f%% available", budgetErr.Available),
			Data: map[string]float64{
				"limit":     budgetErr.Limit,
				"requested": budgetErr.Requested,
				"available": budgetErr.Available,
			},
		})
	case errors.As(err, &floorErr):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Commission rate cannot drop below the %.2f%% already allocated to child channels", floorErr.Floor),
			Data: map[string]float64{
				"floor":     floorErr.Floor,
				"requested": floorErr.Requested,
			},
		})
	case errors.As(err, &childrenErr):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Channel still has %d child channel(s); delete or move them first", childrenErr.Count),
			Data:    map[string]int64{"childCount": childrenErr.Count},
		})
	case errors.As(err, &invariantErr):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Factory retain rate %.2f%% plus allocated %.2f%% exceeds the total margin %.2f%%",
				invariantErr.FactoryRetainRate, invariantErr.AllocatedRate, invariantErr.TotalMarginRate),
		})
	case errors.Is(err, services.ErrSystemExists):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Commission system already exists for this manufacturer",
		})
	case errors.Is(err, services.ErrCrossSystemParent):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Parent channel belongs to a different manufacturer's commission system",
		})
	case errors.Is(err, services.ErrSystemArchived):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Commission system is archived and cannot be modified",
		})
	case errors.Is(err, services.ErrForbidden):
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "You are not allowed to perform this action",
		})
	case errors.Is(err, services.ErrSystemNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Commission system not found",
		})
	case errors.Is(err, services.ErrChannelNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Channel not found",
		})
	case errors.Is(err, services.ErrParentNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Parent channel not found",
		})
	case errors.Is(err, services.ErrConcurrentModification):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "The commission system was modified concurrently, please retry",
		})
	default:
		c.Logger().Errorf("allocation error: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
}
