package routes

import (
	"net/http"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/Dhyanvj/BuddyUp/services"
	"github.com/Dhyanvj/BuddyUp/utils"
)

// CreateReview rates a fellow rider after a completed trip.
func CreateReview(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)

	var input services.CreateReviewInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	review, err := Reviews.Create(ctx, user.ID, input)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "review": review})
}

// ListUserReviews pages through the reviews written about a user.
// GET /review/user/:id?page=&per_page=
func ListUserReviews(ctx iris.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	reviews, total, err := Reviews.ListForUser(ctx, id, page, perPage)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	utils.JSONPage(ctx, reviews, page, perPage, total)
}
