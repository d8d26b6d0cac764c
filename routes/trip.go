package routes

import (
	"net/http"
	"strconv"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/Dhyanvj/BuddyUp/services"
	"github.com/Dhyanvj/BuddyUp/utils"
)

// CreateTrip creates a trip owned by the authenticated user.
func CreateTrip(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)

	var input services.CreateTripInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	trip, err := Trips.Create(ctx, user.ID, input)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "trip": trip})
}

// GetTrip returns the full trip aggregate: trip, creator and live
// participants. This is the payload realtime clients refetch on any
// change event.
func GetTrip(ctx iris.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	trip, err := Store.GetTripAggregate(ctx, id)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "trip": trip})
}

// EditTrip updates an active trip's details (creator only).
func EditTrip(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var input services.EditTripInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	trip, err := Trips.Edit(ctx, id, user.ID, input)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "trip": trip})
}

// SearchNearbyTrips returns active upcoming trips within radiusKm of
// (lat, lng), closest first.
func SearchNearbyTrips(ctx iris.Context) {
	lat, err := strconv.ParseFloat(ctx.URLParam("lat"), 64)
	if err != nil {
		utils.JSONError(ctx, iris.StatusBadRequest, "validation_error", "invalid lat")
		return
	}
	lng, err := strconv.ParseFloat(ctx.URLParam("lng"), 64)
	if err != nil {
		utils.JSONError(ctx, iris.StatusBadRequest, "validation_error", "invalid lng")
		return
	}
	radiusKm := ctx.URLParamFloat64Default("radius", 10)
	if radiusKm <= 0 || radiusKm > 100 {
		utils.JSONError(ctx, iris.StatusBadRequest, "validation_error", "radius must be between 0 and 100 km")
		return
	}

	trips, err := Store.SearchTrips(ctx, lat, lng, radiusKm)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "trips": trips})
}

// GetMyTrips returns the trips the user created and the ones they are
// riding or waiting on.
func GetMyTrips(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)

	created, participations, err := Store.ListUserTrips(ctx, user.ID)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{
		"success":        true,
		"created":        created,
		"participations": participations,
	})
}

// CancelTrip moves an active trip to cancelled and tells everyone on it.
func CancelTrip(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := Participation.Cancel(ctx, id, user.ID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// CompleteTrip moves an active trip to completed and bumps everyone's
// trip counters.
func CompleteTrip(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := Participation.Complete(ctx, id, user.ID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}
