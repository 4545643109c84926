package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"

	apperrors "github.com/wfunc/idle-game/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// CipherStore 加封存储（装饰器）
// 用XChaCha20-Poly1305在落盘前加封存档，读出时解封，
// 防止玩家直接改写本地存档。域名作为附加认证数据，
// 存档在域之间互换会解封失败。解封失败按读取失败处理，
// 上层回退到默认域状态。
type CipherStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewCipherStore 创建加封存储
// key必须是32字节密钥。
func NewCipherStore(inner Store, key []byte) (*CipherStore, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, apperrors.Newf(apperrors.ErrSealInvalidKey,
			"密钥长度 %d，需要 %d", len(key), chacha20poly1305.KeySize)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSealInvalidKey)
	}

	return &CipherStore{
		inner: inner,
		aead:  aead,
	}, nil
}

// ParseSealKey 解析十六进制密钥
func ParseSealKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSealInvalidKey, "密钥不是合法的十六进制")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, apperrors.Newf(apperrors.ErrSealInvalidKey,
			"密钥长度 %d，需要 %d", len(key), chacha20poly1305.KeySize)
	}
	return key, nil
}

// Read 读取并解封存档
func (s *CipherStore) Read(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Read(ctx, key)
	if err != nil {
		return nil, err
	}

	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, apperrors.Newf(apperrors.ErrSealOpen, "域 %s 封装数据过短", key)
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrSealOpen, "域 %s", key)
	}

	return plain, nil
}

// Write 加封并写入存档
func (s *CipherStore) Write(ctx context.Context, key string, data []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return apperrors.Wrap(err, apperrors.ErrStorageWrite, "随机数生成失败")
	}

	sealed := s.aead.Seal(nonce, nonce, data, []byte(key))
	return s.inner.Write(ctx, key, sealed)
}

// Exists 检查存档是否存在
func (s *CipherStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.inner.Exists(ctx, key)
}
