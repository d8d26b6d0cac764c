package routes

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/store"
	"github.com/Dhyanvj/BuddyUp/utils"
)

type sendMessageInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// ListTripMessages returns the last 100 messages of a trip's chat,
// oldest first. Members only.
func ListTripMessages(ctx iris.Context) {
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

	msgs, err := Chat.ListMessages(ctx, tripID, user.ID)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "messages": msgs})
}

// SendTripMessage posts a message to the trip chat and notifies the
// other members.
func SendTripMessage(ctx iris.Context) {
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

	var input sendMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	msg, err := Chat.Send(ctx, tripID, user.ID, input.Content)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "message": msg})
}

// MarkTripMessagesRead stamps the user on every unread message in the
// trip chat.
func MarkTripMessagesRead(ctx iris.Context) {
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

	if err := Chat.MarkRead(ctx, tripID, user.ID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// Typing sets a short-lived Redis key marking the user as typing in the
// trip chat for 5 seconds.
func Typing(ctx iris.Context) {
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
	if Redis == nil {
		ctx.JSON(iris.Map{"success": true})
		return
	}

	Redis.Set(ctx, typingKey(tripID, user.ID), "1", 5*time.Second)
	ctx.JSON(iris.Map{"success": true})
}

// ListTyping reports which other trip members have a live typing key.
func ListTyping(ctx iris.Context) {
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

	typing := []iris.Map{}
	if Redis == nil {
		ctx.JSON(iris.Map{"success": true, "typing": typing})
		return
	}

	trip, err := Store.GetTrip(ctx, tripID)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	members := []uuid.UUID{trip.CreatorID}
	accepted, err := Store.ListParticipants(ctx, tripID, models.ParticipantStatusAccepted)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		utils.WriteError(ctx, err)
		return
	}
	for _, p := range accepted {
		members = append(members, p.UserID)
	}

	for _, id := range members {
		if id == user.ID {
			continue
		}
		if val, err := Redis.Get(ctx, typingKey(tripID, id)).Result(); err == nil && val == "1" {
			name := ""
			if u, err := Store.GetUser(ctx, id); err == nil {
				name = u.FullName
			}
			typing = append(typing, iris.Map{"userID": id, "name": name})
		}
	}
	ctx.JSON(iris.Map{"success": true, "typing": typing})
}

func typingKey(tripID, userID uuid.UUID) string {
	return fmt.Sprintf("typing:trip:%s:user:%s", tripID, userID)
}
