package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kartikasari/ujianku/internal/dto"
	"github.com/kartikasari/ujianku/internal/model"
)

// ActorFrom extracts the explicit tenant/user context from the request.
// Session handling lives in front of this service; the gateway forwards the
// authenticated identity in headers. A missing identity is rejected here so
// no operation runs with an ambient or zero actor.
func ActorFrom(ctx *gin.Context) (model.Actor, bool) {
	userID, err1 := strconv.ParseUint(ctx.GetHeader("X-User-ID"), 10, 32)
	schoolID, err2 := strconv.ParseUint(ctx.GetHeader("X-School-ID"), 10, 32)
	role := ctx.GetHeader("X-User-Role")

	if err1 != nil || err2 != nil || role == "" {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing or invalid identity headers"})
		return model.Actor{}, false
	}
	return model.Actor{UserID: uint(userID), Role: role, SchoolID: uint(schoolID)}, true
}

// ParseID parses a numeric path parameter, writing the 400 response itself
// on failure.
func ParseID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}
