package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown        ErrorCode = 1000
	ErrInvalidParam   ErrorCode = 1001
	ErrNotFound       ErrorCode = 1002
	ErrAlreadyExists  ErrorCode = 1003
	ErrTimeout        ErrorCode = 1004
	ErrCanceled       ErrorCode = 1005
	ErrNotImplemented ErrorCode = 1006

	// 存储错误 (2000-2999)
	ErrStorageConnect   ErrorCode = 2000
	ErrStorageRead      ErrorCode = 2001
	ErrStorageWrite     ErrorCode = 2002
	ErrKeyNotFound      ErrorCode = 2003
	ErrDecodeState      ErrorCode = 2004
	ErrEncodeState      ErrorCode = 2005
	ErrSealOpen         ErrorCode = 2006
	ErrSealInvalidKey   ErrorCode = 2007
	ErrStorageMigrate   ErrorCode = 2008
	ErrStorageDriver    ErrorCode = 2009
	ErrStorageIntegrity ErrorCode = 2010

	// 存档调度错误 (3000-3999)
	ErrSaveDomainUnknown ErrorCode = 3000
	ErrSaveFlush         ErrorCode = 3001
	ErrSaveClosed        ErrorCode = 3002

	// 目标/任务错误 (4000-4999)
	ErrMissionNotFound     ErrorCode = 4000
	ErrMissionNotCompleted ErrorCode = 4001
	ErrMissionClaimed      ErrorCode = 4002
	ErrTierLocked          ErrorCode = 4003

	// 加速效果错误 (5000-5999)
	ErrBoostLocked     ErrorCode = 5000
	ErrBoostActive     ErrorCode = 5001
	ErrBoostCooling    ErrorCode = 5002
	ErrBoostMultiplier ErrorCode = 5003

	// 经济错误 (6000-6999)
	ErrInsufficientGold  ErrorCode = 6000
	ErrInsufficientItems ErrorCode = 6001
	ErrStorageFull       ErrorCode = 6002
	ErrCharacterUnknown  ErrorCode = 6003
	ErrCharacterLocked   ErrorCode = 6004

	// 目录数据错误 (7000-7999)
	ErrCatalogLoad      ErrorCode = 7000
	ErrCatalogParse     ErrorCode = 7001
	ErrCatalogDuplicate ErrorCode = 7002
	ErrUpgradeStep      ErrorCode = 7003

	// 配置错误 (8000-8999)
	ErrConfigLoad     ErrorCode = 8000
	ErrConfigParse    ErrorCode = 8001
	ErrConfigValidate ErrorCode = 8002
	ErrConfigMissing  ErrorCode = 8003
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	// 通用错误
	ErrUnknown:        "未知错误",
	ErrInvalidParam:   "无效的参数",
	ErrNotFound:       "资源未找到",
	ErrAlreadyExists:  "资源已存在",
	ErrTimeout:        "操作超时",
	ErrCanceled:       "操作已取消",
	ErrNotImplemented: "功能未实现",

	// 存储错误
	ErrStorageConnect:   "存储连接失败",
	ErrStorageRead:      "存档读取失败",
	ErrStorageWrite:     "存档写入失败",
	ErrKeyNotFound:      "存档不存在",
	ErrDecodeState:      "存档数据解析失败",
	ErrEncodeState:      "存档数据序列化失败",
	ErrSealOpen:         "存档解封失败",
	ErrSealInvalidKey:   "存档密钥无效",
	ErrStorageMigrate:   "存储迁移失败",
	ErrStorageDriver:    "不支持的存储驱动",
	ErrStorageIntegrity: "存档完整性错误",

	// 存档调度错误
	ErrSaveDomainUnknown: "未注册的存档域",
	ErrSaveFlush:         "存档落盘失败",
	ErrSaveClosed:        "存档调度器已关闭",

	// 目标/任务错误
	ErrMissionNotFound:     "任务不存在",
	ErrMissionNotCompleted: "任务尚未完成",
	ErrMissionClaimed:      "任务奖励已领取",
	ErrTierLocked:          "任务层级未解锁",

	// 加速效果错误
	ErrBoostLocked:     "加速功能未解锁",
	ErrBoostActive:     "加速正在生效中",
	ErrBoostCooling:    "加速正在冷却中",
	ErrBoostMultiplier: "速度倍率未回到基准",

	// 经济错误
	ErrInsufficientGold:  "金币不足",
	ErrInsufficientItems: "材料不足",
	ErrStorageFull:       "仓库已满",
	ErrCharacterUnknown:  "角色不存在",
	ErrCharacterLocked:   "角色未解锁",

	// 目录数据错误
	ErrCatalogLoad:      "目录数据加载失败",
	ErrCatalogParse:     "目录数据解析失败",
	ErrCatalogDuplicate: "目录数据重复",
	ErrUpgradeStep:      "升级档位不存在",

	// 配置错误
	ErrConfigLoad:     "配置加载失败",
	ErrConfigParse:    "配置解析失败",
	ErrConfigValidate: "配置验证失败",
	ErrConfigMissing:  "配置项缺失",
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`            // 错误码
	Message string       `json:"message"`         // 错误消息
	Details string       `json:"details"`         // 详细信息
	Cause   error        `json:"-"`               // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"` // 调用栈
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	// 捕获调用栈
	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return New(code, details)
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，保留原始错误码
	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return Wrap(err, code, details)
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	if n > 0 {
		frames := runtime.CallersFrames(pcs[:n])
		for {
			frame, more := frames.Next()

			// 跳过runtime和本包的调用
			if strings.Contains(frame.Function, "runtime.") ||
				strings.Contains(frame.Function, "github.com/wfunc/idle-game/internal/errors") {
				if !more {
					break
				}
				continue
			}

			e.Stack = append(e.Stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})

			if !more {
				break
			}

			// 只保留前10个栈帧
			if len(e.Stack) >= 10 {
				break
			}
		}
	}
}

// GetStack 获取格式化的调用栈
func (e *AppError) GetStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, frame := range e.Stack {
		builder.WriteString(fmt.Sprintf("%d. %s\n   %s:%d\n",
			i+1, frame.Function, frame.File, frame.Line))
	}

	return builder.String()
}

// IsRetryable 判断错误是否可重试
// 存档写入类失败由去抖调度器在下一个周期自动重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrTimeout,
		ErrStorageConnect,
		ErrStorageWrite,
		ErrSaveFlush:
		return true
	default:
		return false
	}
}

// IsCritical 判断是否为严重错误
func IsCritical(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrStorageConnect,
		ErrStorageMigrate,
		ErrStorageDriver,
		ErrConfigLoad,
		ErrConfigMissing,
		ErrStorageIntegrity:
		return true
	default:
		return false
	}
}
