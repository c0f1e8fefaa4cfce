package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/service"
	"github.com/kirinyoku/gigbook/internal/service/profiles"
)

// @Summary  Create profile
// @Description  The new profile becomes the caller's active one.
// @Security BearerAuth
// @Param    req body  CreateProfileRequest true "payload"
// @Success  201 {object} domain.Profile
// @Failure  400 {object} ErrorResponse
// @Router   /v1/profiles [post]
func handleCreateProfile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		p, err := svcs.Profiles.Create(c.Request.Context(), userID(c), profiles.CreateInput{
			Type:     domain.ProfileType(req.Type),
			Name:     req.Name,
			Location: req.Location,
			Bio:      req.Bio,
			ImageURL: req.ImageURL,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// @Summary  List the caller's profiles
// @Security BearerAuth
// @Success  200 {array} domain.Profile
// @Router   /v1/profiles [get]
func handleListProfiles(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Profiles.ListForUser(c.Request.Context(), userID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Profile{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Get the caller's active profile
// @Security BearerAuth
// @Success  200 {object} domain.Profile
// @Failure  404 {object} ErrorResponse
// @Router   /v1/profiles/active [get]
func handleGetActiveProfile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svcs.Profiles.Active(c.Request.Context(), userID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Get profile
// @Security BearerAuth
// @Param    id  path  int  true  "Profile ID"
// @Success  200 {object} domain.ProfileCard
// @Failure  404 {object} ErrorResponse
// @Router   /v1/profiles/{id} [get]
func handleGetProfile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		p, err := svcs.Profiles.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		if p.UserID == userID(c) {
			c.JSON(http.StatusOK, p)
			return
		}
		writeJSONWithCache(c, http.StatusOK, p.Card(), "private, max-age=60", true)
	}
}

// @Summary  Switch the active profile
// @Security BearerAuth
// @Param    id  path  int  true  "Profile ID"
// @Success  200 {object} domain.Profile
// @Failure  403 {object} ErrorResponse
// @Router   /v1/profiles/{id}/activate [post]
func handleActivateProfile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		p, err := svcs.Profiles.Activate(c.Request.Context(), userID(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Soft delete a profile
// @Description  The profile is purged after a 30 day grace period.
// @Security BearerAuth
// @Param    id  path  int  true  "Profile ID"
// @Success  204
// @Failure  403 {object} ErrorResponse
// @Router   /v1/profiles/{id} [delete]
func handleDeleteProfile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Profiles.SoftDelete(c.Request.Context(), userID(c), id))
	}
}
