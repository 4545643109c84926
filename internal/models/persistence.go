package models

import (
	"time"
)

// SaveBlob 存档记录表（每个存档域一行）
type SaveBlob struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Domain    string    `gorm:"uniqueIndex;size:32;not null" json:"domain"`
	Data      []byte    `gorm:"type:blob" json:"data"`
	Revision  string    `gorm:"size:36" json:"revision"` // 每次写入更新的UUID
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SaveBlob) TableName() string {
	return "save_blobs"
}

// SaveAudit 存档写入审计表（每次物理写入一行）
type SaveAudit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Domain    string    `gorm:"index;size:32;not null" json:"domain"`
	Revision  string    `gorm:"size:36" json:"revision"`
	Size      int       `json:"size"`
	Duration  int64     `json:"duration"` // 微秒
	OK        bool      `json:"ok"`
	Error     string    `gorm:"size:500" json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (SaveAudit) TableName() string {
	return "save_audits"
}
