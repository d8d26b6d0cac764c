package routes

import (
	"net/http"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/Dhyanvj/BuddyUp/utils"
)

type joinTripInput struct {
	Seats int `json:"seats" validate:"required,min=1,max=8"`
}

// RequestToJoin asks for seats on a trip. Re-requesting after a
// rejection or a leave reuses the same participant row.
func RequestToJoin(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)
	tripID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var input joinTripInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	participant, err := Participation.RequestToJoin(ctx, tripID, user.ID, input.Seats)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "participant": participant})
}

// ListTripParticipants returns every participant row for a trip,
// optionally filtered by ?status=.
func ListTripParticipants(ctx iris.Context) {
	tripID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var statuses []string
	if s := ctx.URLParam("status"); s != "" {
		statuses = append(statuses, s)
	}
	participants, err := Store.ListParticipants(ctx, tripID, statuses...)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "participants": participants})
}

// AcceptParticipant approves a pending request and takes the seats
// (creator only).
func AcceptParticipant(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)
	tripID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	participantID, ok := parseID(ctx, "participantID")
	if !ok {
		return
	}

	if err := Participation.Accept(ctx, tripID, participantID, user.ID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// RejectParticipant declines a pending request (creator only).
func RejectParticipant(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)
	tripID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	participantID, ok := parseID(ctx, "participantID")
	if !ok {
		return
	}

	if err := Participation.Reject(ctx, tripID, participantID, user.ID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// LeaveTrip releases the authenticated rider's accepted seats.
func LeaveTrip(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)
	tripID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := Participation.Leave(ctx, tripID, user.ID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

type removeParticipantInput struct {
	Reason string `json:"reason" validate:"max=256"`
}

// RemoveParticipant kicks a pending or accepted participant off the
// trip (creator only).
func RemoveParticipant(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)
	tripID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	participantID, ok := parseID(ctx, "participantID")
	if !ok {
		return
	}

	var input removeParticipantInput
	if err := ctx.ReadJSON(&input); err != nil && ctx.GetContentLength() > 0 {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := Participation.Remove(ctx, tripID, participantID, user.ID, input.Reason); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}
