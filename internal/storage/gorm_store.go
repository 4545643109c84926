package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/idle-game/internal/config"
	apperrors "github.com/wfunc/idle-game/internal/errors"
	"github.com/wfunc/idle-game/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 按配置打开存档数据库
func Open(cfg *config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector

	// 根据配置选择数据库驱动
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, apperrors.Newf(apperrors.ErrStorageDriver, "driver=%s", cfg.Driver)
	}

	// 配置GORM日志
	logLevel := gormlogger.Warn
	switch cfg.LogLevel {
	case "silent":
		logLevel = gormlogger.Silent
	case "error":
		logLevel = gormlogger.Error
	case "warn":
		logLevel = gormlogger.Warn
	case "info":
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(logger, logLevel),
		SkipDefaultTransaction: true, // 单写者，跳过默认事务
		PrepareStmt:            true, // 预编译语句
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStorageConnect)
	}

	// 获取底层SQL数据库实例
	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStorageConnect)
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// 测试数据库连接
	if err := sqlDB.Ping(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStorageConnect)
	}

	if cfg.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	logger.Info("存档数据库连接成功",
		zap.String("driver", cfg.Driver),
		zap.Int("max_idle", cfg.MaxIdleConns),
		zap.Int("max_open", cfg.MaxOpenConns),
	)

	return db, nil
}

// AutoMigrate 自动迁移存档表结构
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.SaveBlob{},
		&models.SaveAudit{},
	); err != nil {
		return apperrors.Wrap(err, apperrors.ErrStorageMigrate)
	}
	return nil
}

// Close 关闭存档数据库
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GormStore 数据库存储
// 每个存档域在save_blobs中占一行，每次写入更新修订UUID；
// 配置开启审计时，每次物理写入在save_audits追加一行。
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
	audit  AuditRepository // 为nil时不记审计
}

// NewGormStore 创建数据库存储
func NewGormStore(db *gorm.DB, logger *zap.Logger, audit AuditRepository) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{
		db:     db,
		logger: logger,
		audit:  audit,
	}
}

// Read 读取存档
func (s *GormStore) Read(ctx context.Context, key string) ([]byte, error) {
	var blob models.SaveBlob

	result := s.db.WithContext(ctx).
		Where("domain = ?", key).
		First(&blob)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperrors.Newf(apperrors.ErrKeyNotFound, "域 %s", key)
		}
		return nil, apperrors.Wrapf(result.Error, apperrors.ErrStorageRead, "域 %s", key)
	}

	return blob.Data, nil
}

// Write 写入存档（存在则更新，不存在则插入）
func (s *GormStore) Write(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	revision := uuid.New().String()

	blob := &models.SaveBlob{
		Domain:   key,
		Data:     data,
		Revision: revision,
	}

	result := s.db.WithContext(ctx).
		Where("domain = ?", key).
		Assign(models.SaveBlob{
			Data:     data,
			Revision: revision,
		}).
		FirstOrCreate(blob)

	err := result.Error
	if err != nil {
		err = apperrors.Wrapf(err, apperrors.ErrStorageWrite, "域 %s", key)
	}

	// 审计追加失败只记日志，不影响存档主流程
	s.appendAudit(ctx, key, revision, len(data), time.Since(start), err)

	return err
}

// Exists 检查存档是否存在
func (s *GormStore) Exists(ctx context.Context, key string) (bool, error) {
	var count int64

	result := s.db.WithContext(ctx).
		Model(&models.SaveBlob{}).
		Where("domain = ?", key).
		Count(&count)

	if result.Error != nil {
		return false, apperrors.Wrapf(result.Error, apperrors.ErrStorageRead, "域 %s", key)
	}

	return count > 0, nil
}

// appendAudit 追加写入审计记录
func (s *GormStore) appendAudit(ctx context.Context, domain, revision string, size int, duration time.Duration, writeErr error) {
	if s.audit == nil {
		return
	}

	audit := &models.SaveAudit{
		Domain:   domain,
		Revision: revision,
		Size:     size,
		Duration: duration.Microseconds(),
		OK:       writeErr == nil,
	}
	if writeErr != nil {
		audit.Error = writeErr.Error()
	}

	if err := s.audit.Append(ctx, audit); err != nil {
		s.logger.Warn("存档审计记录失败",
			zap.String("domain", domain),
			zap.String("revision", revision),
			zap.Error(err))
	}
}

// GormLogger GORM日志适配器
type GormLogger struct {
	logger   *zap.Logger
	logLevel gormlogger.LogLevel
}

// NewGormLogger 创建GORM日志适配器
func NewGormLogger(logger *zap.Logger, level gormlogger.LogLevel) *GormLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormLogger{
		logger:   logger,
		logLevel: level,
	}
}

// LogMode 设置日志级别
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	l.logLevel = level
	return l
}

// Info 输出信息日志
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

// Warn 输出警告日志
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

// Error 输出错误日志
func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace 输出SQL追踪日志
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && err != gorm.ErrRecordNotFound && l.logLevel >= gormlogger.Error:
		l.logger.Error("SQL执行错误",
			zap.Error(err),
			zap.String("sql", sql),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
		)
	case elapsed > time.Second && l.logLevel >= gormlogger.Warn:
		l.logger.Warn("SQL执行缓慢",
			zap.String("sql", sql),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
		)
	case l.logLevel >= gormlogger.Info:
		l.logger.Debug("SQL执行",
			zap.String("sql", sql),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
		)
	}
}
