package storage

import "time"

// ConversationTurn 表示会话中一次已完成的问答。
//
// 写入后不再修改；同一会话内按自增 ID 排序即为写入顺序。
type ConversationTurn struct {
	// ID 为自增主键（内部使用），同一时间戳内用于稳定排序。
	ID uint64 `gorm:"primaryKey"`
	// SessionID 为会话标识，由调用方提供或服务端生成；与 CreatedAt 组成联合索引。
	SessionID string `gorm:"size:128;not null;index:idx_turns_session_time,priority:1"`
	// Question 为用户原始提问（未经改写）。
	Question string `gorm:"type:text;not null"`
	// Answer 为最终回答。
	Answer string `gorm:"type:text;not null"`
	// Model 为生成该回答所用的模型标识。
	Model string `gorm:"size:255"`
	// CreatedAt 为写入时间（UTC）。
	CreatedAt time.Time `gorm:"not null;index:idx_turns_session_time,priority:2;index"`
}

// AuditRecord 记录一次流水线阶段的执行及其结果，用于追溯与排障。
//
// 一条审计记录对应一次图节点执行（例如 contextualize / router / retrieve）。
// 入参与输出统一以 JSON 字符串存放。
type AuditRecord struct {
	// ID 为自增主键（内部使用）。
	ID uint64 `gorm:"primaryKey"`
	// TraceID 串联一次问答请求，便于按请求聚合。
	TraceID string `gorm:"size:64;index"`
	// SessionID 为所属会话（可选）。
	SessionID string `gorm:"size:128;index"`
	// Action 为执行的阶段名（建议为稳定的节点名）。
	Action string `gorm:"size:128;not null;index"`
	// ParamsJSON 存放阶段入参摘要（JSON 字符串）。
	ParamsJSON string `gorm:"type:text"`
	// ResultJSON 存放阶段输出摘要（JSON 字符串）。
	ResultJSON string `gorm:"type:text"`
	// Status 为执行状态（running/success/failed）。
	Status string `gorm:"size:32;not null;index"`
	// ErrorMessage 存放失败时的错误信息。
	ErrorMessage string `gorm:"type:text"`
	// StartedAt/FinishedAt 为阶段起止时间。
	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time `gorm:"index"`
	// CreatedAt 为记录写入时间，默认自动填充。
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"`
}

const (
	AuditStatusRunning = "running"
	AuditStatusSuccess = "success"
	AuditStatusFailed  = "failed"
)
