package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"

	"github.com/Dhyanvj/BuddyUp/realtime"
	"github.com/Dhyanvj/BuddyUp/services"
	"github.com/Dhyanvj/BuddyUp/store"
	"github.com/Dhyanvj/BuddyUp/utils"
)

// Package-level service handles, set once at startup by Configure.
var (
	Store         store.Store
	Trips         *services.Trips
	Participation *services.Participation
	Chat          *services.Chat
	Reviews       *services.Reviews
	Hub           *realtime.Hub
	Redis         *redis.Client
)

type Deps struct {
	Store         store.Store
	Trips         *services.Trips
	Participation *services.Participation
	Chat          *services.Chat
	Reviews       *services.Reviews
	Hub           *realtime.Hub
	Redis         *redis.Client
}

// Configure wires the handlers to their services. Call before the app
// starts serving.
func Configure(d Deps) {
	Store = d.Store
	Trips = d.Trips
	Participation = d.Participation
	Chat = d.Chat
	Reviews = d.Reviews
	Hub = d.Hub
	Redis = d.Redis
}

// parseID reads a UUID path parameter, writing a 400 on garbage.
func parseID(ctx iris.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Params().Get(name))
	if err != nil {
		utils.JSONError(ctx, iris.StatusBadRequest, "validation_error", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
