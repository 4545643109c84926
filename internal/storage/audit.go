package storage

import (
	"context"

	apperrors "github.com/wfunc/idle-game/internal/errors"
	"github.com/wfunc/idle-game/internal/models"
	"gorm.io/gorm"
)

// AuditRepository 存档写入审计仓储接口
type AuditRepository interface {
	// Append 追加一条审计记录
	Append(ctx context.Context, audit *models.SaveAudit) error
	// ListRecent 按时间倒序取指定域的最近记录
	ListRecent(ctx context.Context, domain string, limit int) ([]*models.SaveAudit, error)
	// CountFailed 统计指定域的失败写入次数
	CountFailed(ctx context.Context, domain string) (int64, error)
}

// auditRepository 审计仓储实现
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建审计仓储
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Append 追加一条审计记录
func (r *auditRepository) Append(ctx context.Context, audit *models.SaveAudit) error {
	if err := r.db.WithContext(ctx).Create(audit).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrStorageWrite, "审计记录追加失败")
	}
	return nil
}

// ListRecent 按时间倒序取指定域的最近记录
func (r *auditRepository) ListRecent(ctx context.Context, domain string, limit int) ([]*models.SaveAudit, error) {
	if limit <= 0 {
		limit = 10
	}

	var audits []*models.SaveAudit
	err := r.db.WithContext(ctx).
		Where("domain = ?", domain).
		Order("id DESC").
		Limit(limit).
		Find(&audits).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStorageRead, "审计记录查询失败")
	}

	return audits, nil
}

// CountFailed 统计指定域的失败写入次数
func (r *auditRepository) CountFailed(ctx context.Context, domain string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SaveAudit{}).
		Where("domain = ? AND ok = ?", domain, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrStorageRead, "审计记录统计失败")
	}

	return count, nil
}
