package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/nooogy1/FantasyPetDiscord/internal/audit/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/state"
)

type botStatusResponse struct {
	Environment  string           `json:"environment"`
	CheckRunning bool             `json:"check_running"`
	PetsTracked  int              `json:"pets_tracked"`
	Counters     state.Counters   `json:"counters"`
	QueueBacklog map[string]int64 `json:"queue_backlog"`
}

// @Summary      Bot Status
// @Description  Report lifetime counters, tracked population and queue backlog
// @Tags         admin
// @Produce      json
// @Security     AdminAuth
// @Success      200  {object}  botStatusResponse
// @Router       /api/admin/status [get]
func (s *Server) GetBotStatus(c *gin.Context) {
	if s.queue == nil || s.store == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	backlog, err := s.queue.PendingCounts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	snap := s.store.View()
	resp := botStatusResponse{
		Environment:  s.cfg.Environment,
		CheckRunning: s.checker != nil && s.checker.Busy(),
		PetsTracked:  len(snap.Pets),
		Counters:     snap.Counters,
		QueueBacklog: backlog,
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Trigger Check
// @Description  Run one check cycle now instead of waiting for the ticker
// @Tags         admin
// @Produce      json
// @Security     AdminAuth
// @Success      200  {object}  checker.ChangeSummary
// @Router       /api/admin/check [post]
func (s *Server) TriggerCheck(c *gin.Context) {
	if s.checker == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	summary, err := s.checker.RunCycle(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionCheckTriggered, "check", summary.RunID, map[string]any{
		"pets_total":     summary.PetsTotal,
		"newly_seen":     summary.NewlySeen,
		"adoptions":      summary.Adoptions,
		"points_awarded": summary.PointsAwarded,
	})

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// @Summary      Maintenance Sweep
// @Description  Delete orphaned score records and rebuild leaderboard totals
// @Tags         admin
// @Produce      json
// @Security     AdminAuth
// @Success      200  {object}  scoredomain.SweepReport
// @Router       /api/admin/maintenance/sweep [post]
func (s *Server) RunMaintenanceSweep(c *gin.Context) {
	if s.scoreSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	report, err := s.scoreSvc.SweepOrphans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionSweepRun, "score_records", "", map[string]any{
		"records_deleted": report.RecordsDeleted,
		"totals_rebuilt":  report.TotalsRebuilt,
	})

	c.JSON(http.StatusOK, gin.H{"data": report})
}

// @Summary      List Audit Log
// @Description  List recorded operator actions, newest first
// @Tags         admin
// @Produce      json
// @Security     AdminAuth
// @Param        action       query  string  false  "Action"
// @Param        actor_type   query  string  false  "Actor Type"
// @Param        target_type  query  string  false  "Target Type"
// @Param        limit        query  int     false  "Row limit"
// @Success      200  {object}  []auditdomain.AuditLog
// @Router       /api/admin/audit [get]
func (s *Server) ListAuditLog(c *gin.Context) {
	if s.auditSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var query struct {
		Action     string `form:"action"`
		ActorType  string `form:"actor_type"`
		TargetType string `form:"target_type"`
		Limit      int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rows, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListFilter{
		Action:     strings.TrimSpace(query.Action),
		ActorType:  strings.TrimSpace(query.ActorType),
		TargetType: strings.TrimSpace(query.TargetType),
		Limit:      query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// recordAudit writes an audit entry for an admin action. Failures are
// logged inside the audit service and never fail the request.
func (s *Server) recordAudit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		ActorType:  auditdomain.ActorTypeAdmin,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
		IPAddress:  c.ClientIP(),
	})
}
