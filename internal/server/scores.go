package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 50
)

// @Summary      Get Leaderboard
// @Description  Rank users by points in one league
// @Tags         scores
// @Produce      json
// @Param        league  path   string  true   "League slug"
// @Param        limit   query  int     false  "Row limit"
// @Success      200  {object}  []scoredomain.LeaderboardRow
// @Router       /api/leaderboard/{league} [get]
func (s *Server) GetLeaderboard(c *gin.Context) {
	if s.scoreSvc == nil || s.leagueSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	league, err := s.leagueSvc.GetBySlug(c.Request.Context(), strings.TrimSpace(c.Param("league")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	limit := defaultLeaderboardLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	rows, err := s.scoreSvc.Top(c.Request.Context(), league.ID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"league": league.Slug,
		"rows":   rows,
	}})
}

// @Summary      Get User History
// @Description  List a user's awards, optionally scoped to one league
// @Tags         scores
// @Produce      json
// @Param        id      path   string  true   "User ID"
// @Param        league  query  string  false  "League slug"
// @Success      200  {object}  []scoredomain.HistoryEntry
// @Router       /api/users/{id}/history [get]
func (s *Server) GetUserHistory(c *gin.Context) {
	if s.scoreSvc == nil {
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

	entries, err := s.scoreSvc.HistoryForUser(c.Request.Context(), userID, leagueID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
