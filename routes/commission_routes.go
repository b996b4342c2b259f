package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/furnimall/furnimall_backend/controllers"
	"github.com/furnimall/furnimall_backend/middleware"
	"github.com/furnimall/furnimall_backend/repositories"
	"github.com/furnimall/furnimall_backend/services"
)

// RegisterCommissionRoutes wires the commission allocation endpoints.
// All routes require authentication; fine-grained ownership checks live
// in the allocation service itself.
func RegisterCommissionRoutes(e *echo.Echo, client *mongo.Client, redisClient *redis.Client) {
	systemRepo := repositories.NewCommissionSystemRepository(client)
	channelRepo := repositories.NewChannelRepository(client)
	locker := services.NewSystemLocker(redisClient)
	allocationService := services.NewAllocationService(systemRepo, channelRepo, locker)

	systemController := controllers.NewCommissionSystemController(allocationService)
	channelController := controllers.NewChannelController(allocationService)

	api := e.Group("/api")
	api.Use(middleware.JWTMiddleware())

	// Commission system, one per manufacturer
	api.GET("/manufacturers/:mid/commission-system", systemController.GetCommissionSystem)
	api.POST("/manufacturers/:mid/commission-system", systemController.CreateCommissionSystem,
		middleware.RequireUserType("admin", "super_admin", "manufacturer"))
	api.PUT("/manufacturers/:mid/commission-system", systemController.UpdateCommissionSystem,
		middleware.RequireUserType("admin", "super_admin", "manufacturer"))
	api.DELETE("/manufacturers/:mid/commission-system", systemController.ArchiveCommissionSystem,
		middleware.RequireUserType("admin", "super_admin", "manufacturer"))

	// Channel tree nodes
	api.POST("/manufacturers/:mid/channels", channelController.CreateChannel)
	api.GET("/channels/:cid", channelController.GetChannelDetail)
	api.PUT("/channels/:cid", channelController.UpdateChannel)
	api.DELETE("/channels/:cid", channelController.DeleteChannel)
}
