// utils/auth.go
package utils

import (
	"errors"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/furnimall/furnimall_backend/middleware"
	"github.com/furnimall/furnimall_backend/models"
)

// GetViewerFromToken builds the Viewer for the current request from the
// JWT claims the middleware stored on the context.
func GetViewerFromToken(c echo.Context) (models.Viewer, error) {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return models.Viewer{}, errors.New("no token found")
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.Viewer{}, errors.New("invalid user ID format")
	}

	return models.Viewer{
		UserID:   userID,
		Email:    claims.Email,
		UserType: claims.UserType,
	}, nil
}
