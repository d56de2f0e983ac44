package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/nooogy1/FantasyPetDiscord/internal/audit/domain"
	leaguedomain "github.com/nooogy1/FantasyPetDiscord/internal/league/domain"
)

// @Summary      List Leagues
// @Description  List every scoring league, or the one bound to a channel
// @Tags         leagues
// @Produce      json
// @Param        channel  query  string  false  "Filter to the league announcing into this channel"
// @Success      200  {object}  []leaguedomain.League
// @Router       /api/leagues [get]
func (s *Server) ListLeagues(c *gin.Context) {
	if s.leagueSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if channel := strings.TrimSpace(c.Query("channel")); channel != "" {
		league, err := s.leagueSvc.FindByChannel(c.Request.Context(), channel)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": []leaguedomain.League{*league}})
		return
	}

	leagues, err := s.leagueSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": leagues})
}

type createLeagueRequest struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	ChannelID  string `json:"channel_id"`
	WebhookURL string `json:"webhook_url"`
}

// @Summary      Create League
// @Description  Create a scoring league bound to one announcement channel
// @Tags         leagues
// @Accept       json
// @Produce      json
// @Security     AdminAuth
// @Param        request body createLeagueRequest true "Create League Request"
// @Success      200  {object}  leaguedomain.League
// @Router       /api/admin/leagues [post]
func (s *Server) CreateLeague(c *gin.Context) {
	if s.leagueSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req createLeagueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		AbortWithError(c, newValidationError("slug", "required", "slug is required"))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = slug
	}

	league, err := s.leagueSvc.Create(c.Request.Context(), slug, name, strings.TrimSpace(req.ChannelID), strings.TrimSpace(req.WebhookURL))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionLeagueCreated, "league", league.Slug, map[string]any{
		"league_id":  league.ID.String(),
		"channel_id": league.ChannelID,
	})

	c.JSON(http.StatusOK, gin.H{"data": league})
}
