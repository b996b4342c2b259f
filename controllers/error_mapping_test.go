package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furnimall/furnimall_backend/models"
	"github.com/furnimall/furnimall_backend/services"
	"github.com/furnimall/furnimall_backend/utils"
)

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, models.Response) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, respondAllocationError(c, err))

	var body models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRespondAllocationErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"budget exceeded", &utils.BudgetExceededError{Limit: 20, Requested: 25, Available: 20}, http.StatusBadRequest},
		{"below child allocation", &utils.BelowChildAllocationError{Floor: 15, Requested: 10}, http.StatusBadRequest},
		{"has children", &services.HasChildrenError{Count: 2}, http.StatusBadRequest},
		{"invariant violation", &services.InvariantViolationError{TotalMarginRate: 40, FactoryRetainRate: 25, AllocatedRate: 20}, http.StatusBadRequest},
		{"system exists", services.ErrSystemExists, http.StatusBadRequest},
		{"cross-system parent", services.ErrCrossSystemParent, http.StatusBadRequest},
		{"archived", services.ErrSystemArchived, http.StatusBadRequest},
		{"forbidden", services.ErrForbidden, http.StatusForbidden},
		{"system missing", services.ErrSystemNotFound, http.StatusNotFound},
		{"channel missing", services.ErrChannelNotFound, http.StatusNotFound},
		{"parent missing", services.ErrParentNotFound, http.StatusNotFound},
		{"concurrent modification", services.ErrConcurrentModification, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := respond(t, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.want, body.Status)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestRespondBudgetErrorPayload(t *testing.T) {
	rec, body := respond(t, &utils.BudgetExceededError{Limit: 20, Requested: 25, Available: 20})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "20.00%")

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 20.0, data["limit"])
	assert.Equal(t, 25.0, data["requested"])
	assert.Equal(t, 20.0, data["available"])
}
