package models

import (
	"bytes"
	"encoding/json"

	apperrors "github.com/wfunc/idle-game/internal/errors"
)

// EncodeEnvelope 序列化域状态
// 写入端恒定输出包裹形式：{"<domain>": <payload>}。
func EncodeEnvelope(domain string, v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrEncodeState, "域 %s 序列化失败", domain)
	}

	data, err := json.Marshal(map[string]json.RawMessage{domain: payload})
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrEncodeState, "域 %s 包裹失败", domain)
	}
	return data, nil
}

// DecodeEnvelope 反序列化域状态
// 读取端同时接受包裹形式与裸形式（裸数组/裸对象），
// 兼容由外部工具直接导出的存档。
func DecodeEnvelope(domain string, data []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return apperrors.Newf(apperrors.ErrDecodeState, "域 %s 数据为空", domain)
	}

	if trimmed[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrDecodeState, "域 %s 解析失败", domain)
		}

		// 包裹形式：取出与域同名的字段
		if payload, ok := env[domain]; ok {
			if err := json.Unmarshal(payload, v); err != nil {
				return apperrors.Wrapf(err, apperrors.ErrDecodeState, "域 %s 负载解析失败", domain)
			}
			return nil
		}

		// 对象但没有域字段：按裸对象处理
		if err := json.Unmarshal(trimmed, v); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrDecodeState, "域 %s 裸对象解析失败", domain)
		}
		return nil
	}

	// 裸数组
	if err := json.Unmarshal(trimmed, v); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrDecodeState, "域 %s 裸数据解析失败", domain)
	}
	return nil
}
