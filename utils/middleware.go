package utils

import (
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// UserIDMiddleware rejects requests whose {id} path parameter does not
// match the authenticated user.
func UserIDMiddleware(ctx iris.Context) {
	id := ctx.Params().Get("id")

	claims := jwt.Get(ctx).(*AccessToken)

	if claims.ID.String() != id {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}
	ctx.Next()
}

// UserIDFromTokenMiddleware extracts the user ID from the JWT token and
// stores it in the request values. Use this for routes that don't carry
// an {id} parameter in the URL.
func UserIDFromTokenMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// UserID returns the authenticated user's ID set by
// UserIDFromTokenMiddleware.
func UserID(ctx iris.Context) uuid.UUID {
	return ctx.Values().Get("userID").(uuid.UUID)
}
