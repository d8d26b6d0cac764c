package routes

import (
	"github.com/kataras/iris/v12"

	"github.com/Dhyanvj/BuddyUp/utils"
)

// The notifications party runs behind UserIDFromTokenMiddleware, so
// every handler gets the caller via utils.UserID.

// ListNotifications returns the user's notifications, newest first.
func ListNotifications(ctx iris.Context) {
	userID := utils.UserID(ctx)

	limit := ctx.URLParamIntDefault("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	notifications, err := Store.ListNotifications(ctx, userID, limit)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "notifications": notifications})
}

// GetUnreadCount returns how many notifications the user has not read.
func GetUnreadCount(ctx iris.Context) {
	userID := utils.UserID(ctx)

	count, err := Store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "count": count})
}

// MarkNotificationRead marks one of the user's notifications as read.
func MarkNotificationRead(ctx iris.Context) {
	userID := utils.UserID(ctx)
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := Store.MarkNotificationRead(ctx, id, userID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// MarkAllNotificationsRead marks every notification of the user as read.
func MarkAllNotificationsRead(ctx iris.Context) {
	userID := utils.UserID(ctx)

	if err := Store.MarkAllNotificationsRead(ctx, userID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// DeleteNotification deletes one of the user's notifications.
func DeleteNotification(ctx iris.Context) {
	userID := utils.UserID(ctx)
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := Store.DeleteNotification(ctx, id, userID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// DeleteAllNotifications clears the user's notification list.
func DeleteAllNotifications(ctx iris.Context) {
	userID := utils.UserID(ctx)

	if err := Store.DeleteAllNotifications(ctx, userID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}
