package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"backend/internal/model"
	"backend/internal/repository"
)

type AuditLogResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Action    string `json:"action"`
	Path      string `json:"path"`
	Reason    string `json:"reason"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

// AuditService records and lists access-control events. Recording is
// best effort: a failed audit write never blocks the request that
// triggered it.
type AuditService interface {
	RecordDenied(ctx context.Context, sess *model.Session, path, reason string)
	RecordUnknownRole(ctx context.Context, sess *model.Session, path string)
	RecordLogin(ctx context.Context, sess *model.Session)
	RecordLoginFailed(ctx context.Context, email string)
	RecordLogout(ctx context.Context, sess *model.Session)
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository, logger *zap.Logger) AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &auditService{repo: repo, logger: logger}
}

func (s *auditService) RecordDenied(ctx context.Context, sess *model.Session, path, reason string) {
	s.write(ctx, sess, model.ActionAccessDenied, path, reason, nil)
}

func (s *auditService) RecordUnknownRole(ctx context.Context, sess *model.Session, path string) {
	s.write(ctx, sess, model.ActionUnknownRole, path, "", nil)
}

func (s *auditService) RecordLogin(ctx context.Context, sess *model.Session) {
	s.write(ctx, sess, model.ActionLogin, "", "", nil)
}

func (s *auditService) RecordLoginFailed(ctx context.Context, email string) {
	s.write(ctx, nil, model.ActionLoginFailed, "", "", map[string]string{"email": email})
}

func (s *auditService) RecordLogout(ctx context.Context, sess *model.Session) {
	s.write(ctx, sess, model.ActionLogout, "", "", nil)
}

func (s *auditService) write(ctx context.Context, sess *model.Session, action, path, reason string, details map[string]string) {
	entry := &model.AuditLog{
		Action: action,
		Path:   path,
		Reason: reason,
	}
	if sess != nil {
		id := sess.UserID
		entry.UserID = &id
		entry.Role = string(sess.Role)
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed",
			zap.String("action", action),
			zap.Error(err))
	}
}

// loggingAuditService is the fallback for deployments without a
// database: events go to the structured log only and the listing
// endpoint serves an empty trail.
type loggingAuditService struct {
	logger *zap.Logger
}

// NewLoggingAuditService creates an AuditService that only logs
func NewLoggingAuditService(logger *zap.Logger) AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggingAuditService{logger: logger}
}

func (s *loggingAuditService) RecordDenied(_ context.Context, sess *model.Session, path, reason string) {
	s.logger.Info("access denied", sessionFields(sess, zap.String("path", path), zap.String("reason", reason))...)
}

func (s *loggingAuditService) RecordUnknownRole(_ context.Context, sess *model.Session, path string) {
	s.logger.Warn("unknown role", sessionFields(sess, zap.String("path", path))...)
}

func (s *loggingAuditService) RecordLogin(_ context.Context, sess *model.Session) {
	s.logger.Info("login", sessionFields(sess)...)
}

func (s *loggingAuditService) RecordLoginFailed(_ context.Context, email string) {
	s.logger.Info("login failed", zap.String("email", email))
}

func (s *loggingAuditService) RecordLogout(_ context.Context, sess *model.Session) {
	s.logger.Info("logout", sessionFields(sess)...)
}

func (s *loggingAuditService) GetAuditLogs(context.Context, int, int) ([]AuditLogResponse, int64, error) {
	return []AuditLogResponse{}, 0, nil
}

func sessionFields(sess *model.Session, extra ...zap.Field) []zap.Field {
	fields := make([]zap.Field, 0, len(extra)+2)
	if sess != nil {
		fields = append(fields,
			zap.String("user_id", sess.UserID.String()),
			zap.String("role", string(sess.Role)))
	}
	return append(fields, extra...)
}

// GetAuditLogs retrieves strictly paginated records newest first
func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userID := ""
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		res = append(res, AuditLogResponse{
			ID:        l.ID.String(),
			UserID:    userID,
			Role:      l.Role,
			Action:    l.Action,
			Path:      l.Path,
			Reason:    l.Reason,
			Details:   l.Details,
			CreatedAt: l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
