package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type claimRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	League      string `json:"league"`
	PetCode     string `json:"pet_code"`
}

// @Summary      Create Claim
// @Description  Stake a fantasy claim on an available pet
// @Tags         claims
// @Accept       json
// @Produce      json
// @Param        request body claimRequest true "Create Claim Request"
// @Success      200  {object}  rosterdomain.Entry
// @Router       /api/claims [post]
func (s *Server) CreateClaim(c *gin.Context) {
	if s.rosterSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id is required"))
		return
	}
	league := strings.TrimSpace(req.League)
	if league == "" {
		AbortWithError(c, newValidationError("league", "required", "league is required"))
		return
	}
	petCode := strings.TrimSpace(req.PetCode)
	if petCode == "" {
		AbortWithError(c, newValidationError("pet_code", "required", "pet_code is required"))
		return
	}

	if !s.claimLimiter.Allow(userID) {
		AbortWithError(c, rateLimitedError())
		return
	}

	entry, err := s.rosterSvc.Claim(c.Request.Context(), userID, strings.TrimSpace(req.DisplayName), league, petCode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

type releaseClaimRequest struct {
	UserID  string `json:"user_id"`
	League  string `json:"league"`
	PetCode string `json:"pet_code"`
}

// @Summary      Release Claim
// @Description  Withdraw an active claim before the pet is adopted
// @Tags         claims
// @Accept       json
// @Produce      json
// @Param        request body releaseClaimRequest true "Release Claim Request"
// @Success      200  {object}  map[string]string
// @Router       /api/claims [delete]
func (s *Server) ReleaseClaim(c *gin.Context) {
	if s.rosterSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req releaseClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id is required"))
		return
	}
	league := strings.TrimSpace(req.League)
	if league == "" {
		AbortWithError(c, newValidationError("league", "required", "league is required"))
		return
	}
	petCode := strings.TrimSpace(req.PetCode)
	if petCode == "" {
		AbortWithError(c, newValidationError("pet_code", "required", "pet_code is required"))
		return
	}

	if !s.claimLimiter.Allow(userID) {
		AbortWithError(c, rateLimitedError())
		return
	}

	if err := s.rosterSvc.Release(c.Request.Context(), userID, league, petCode); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

// @Summary      List User Claims
// @Description  List a user's active claims, optionally scoped to one league
// @Tags         claims
// @Produce      json
// @Param        id      path   string  true   "User ID"
// @Param        league  query  string  false  "League slug"
// @Success      200  {object}  []rosterdomain.ClaimView
// @Router       /api/users/{id}/claims [get]
func (s *Server) ListUserClaims(c *gin.Context) {
	if s.rosterSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		AbortWithError(c, newValidationError("id", "required", "user id is required"))
		return
	}

	leagueID, err := s.resolveLeagueQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	claims, err := s.rosterSvc.ActiveForUser(c.Request.Context(), userID, leagueID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claims})
}

// resolveLeagueQuery turns the optional ?league= slug into a league ID.
func (s *Server) resolveLeagueQuery(c *gin.Context) (*snowflake.ID, error) {
	slug := strings.TrimSpace(c.Query("league"))
	if slug == "" {
		return nil, nil
	}
	if s.leagueSvc == nil {
		return nil, ErrServiceUnavailable
	}
	league, err := s.leagueSvc.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		return nil, err
	}
	return &league.ID, nil
}
