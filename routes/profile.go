package routes

import (
	"encoding/json"

	"github.com/kataras/iris/v12"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/utils"
)

// GetUserProfile returns a user's profile with the privacy settings of
// the target applied. The owner always sees everything.
func GetUserProfile(ctx iris.Context) {
	viewer := utils.UserID(ctx)
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	user, err := Store.GetUser(ctx, id)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	if viewer != user.ID {
		redactProfile(user)
	}
	ctx.JSON(iris.Map{"success": true, "user": user})
}

// redactProfile strips the fields the user's privacy settings hide from
// other users.
func redactProfile(u *models.User) {
	if !u.ShowEmail {
		u.Email = ""
	}
	if !u.ShowPhone {
		u.PhoneNumber = ""
	}
	switch u.ProfileVisibility {
	case models.VisibilityPrivate:
		u.Email = ""
		u.PhoneNumber = ""
		u.Bio = ""
	case models.VisibilityLimited:
		u.Bio = ""
	}
}

type updateProfileInput struct {
	FullName          string `json:"fullName" validate:"required,max=120"`
	Bio               string `json:"bio" validate:"max=500"`
	AvatarURL         string `json:"avatarURL" validate:"omitempty,url,max=512"`
	PhoneNumber       string `json:"phoneNumber" validate:"max=32"`
	ProfileVisibility string `json:"profileVisibility" validate:"required,oneof=public limited private"`
	ShowEmail         bool   `json:"showEmail"`
	ShowPhone         bool   `json:"showPhone"`
	AllowMessages     bool   `json:"allowMessages"`
}

// UpdateUserProfile updates the user's profile and privacy settings.
// The {id} parameter is pinned to the caller by UserIDMiddleware.
func UpdateUserProfile(ctx iris.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var input updateProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	u, err := Store.GetUser(ctx, id)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	u.FullName = input.FullName
	u.Bio = input.Bio
	u.AvatarURL = input.AvatarURL
	u.PhoneNumber = input.PhoneNumber
	u.ProfileVisibility = input.ProfileVisibility
	u.ShowEmail = input.ShowEmail
	u.ShowPhone = input.ShowPhone
	u.AllowMessages = input.AllowMessages

	if err := Store.SaveUser(ctx, u); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "user": u})
}

type alterPushTokenInput struct {
	Token  string `json:"token" validate:"required"`
	Active bool   `json:"active"`
}

// AlterPushToken registers or unregisters a device push token for the
// user named by {id} (pinned to the caller by UserIDMiddleware).
func AlterPushToken(ctx iris.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var input alterPushTokenInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	u, err := Store.GetUser(ctx, id)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}

	var tokens []string
	if len(u.PushTokens) > 0 {
		json.Unmarshal(u.PushTokens, &tokens)
	}
	next := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		if t != input.Token {
			next = append(next, t)
		}
	}
	if input.Active {
		next = append(next, input.Token)
	}
	raw, err := json.Marshal(next)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	u.PushTokens = raw

	if err := Store.SaveUser(ctx, u); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

type allowsNotificationsInput struct {
	AllowsNotifications *bool `json:"allowsNotifications" validate:"required"`
}

// AllowsNotifications toggles push delivery for the user named by {id}.
// In-app notification rows are written either way.
func AllowsNotifications(ctx iris.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var input allowsNotificationsInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	u, err := Store.GetUser(ctx, id)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	u.AllowsNotifications = input.AllowsNotifications

	if err := Store.SaveUser(ctx, u); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}
