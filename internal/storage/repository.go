package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	defaultLimit = 200
	maxLimit     = 5000

	sessionBatchSize = 500

	defaultDeleteLimit = 500
	maxDeleteLimit     = 900
)

// TurnQuery 用于查询会话记录。
type TurnQuery struct {
	// SessionID 精确匹配会话；为空表示不过滤（仅用于运维查看）。
	SessionID string
	// From/To 过滤 CreatedAt 区间：[From, To]（两端包含）。
	From *time.Time
	To   *time.Time
	// Limit 限制返回条数；<=0 使用默认值。
	Limit int
	// Desc 按 CreatedAt 倒序返回（优先返回最新记录）。
	Desc bool
}

func (s *Storage) InsertTurn(ctx context.Context, turn *ConversationTurn) error {
	if s == nil || s.db == nil {
		return errors.New("storage not initialized")
	}
	if turn == nil {
		return errors.New("turn is nil")
	}
	if turn.SessionID == "" {
		return errors.New("turn session id is empty")
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}
	return nil
}

// QueryTurns 按写入顺序返回会话记录。
//
// 按会话加载完整历史时 Limit 取 maxLimit，避免长会话被默认条数截断。
func (s *Storage) QueryTurns(ctx context.Context, q TurnQuery) ([]ConversationTurn, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("storage not initialized")
	}

	limit := normalizeLimit(q.Limit)
	db := s.db.WithContext(ctx).Model(&ConversationTurn{})
	if q.SessionID != "" {
		db = db.Where("session_id = ?", q.SessionID)
	}
	if q.From != nil {
		db = db.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("created_at <= ?", *q.To)
	}
	if q.Desc {
		db = db.Order("created_at DESC").Order("id DESC")
	} else {
		db = db.Order("created_at ASC").Order("id ASC")
	}
	db = db.Limit(limit)

	var out []ConversationTurn
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query conversation turns: %w", err)
	}
	return out, nil
}

// SessionTurns 返回会话的全部记录，按自增 ID（即写入顺序）排列，不受 maxLimit 截断。
func (s *Storage) SessionTurns(ctx context.Context, sessionID string) ([]ConversationTurn, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("storage not initialized")
	}
	if sessionID == "" {
		return nil, errors.New("session id is empty")
	}

	var (
		out   []ConversationTurn
		batch []ConversationTurn
	)
	// FindInBatches 按主键升序分页
	res := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		FindInBatches(&batch, sessionBatchSize, func(tx *gorm.DB, _ int) error {
			out = append(out, batch...)
			return nil
		})
	if res.Error != nil {
		return nil, fmt.Errorf("load session turns: %w", res.Error)
	}
	return out, nil
}

func (s *Storage) CountTurns(ctx context.Context, sessionID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("storage not initialized")
	}
	var n int64
	db := s.db.WithContext(ctx).Model(&ConversationTurn{})
	if sessionID != "" {
		db = db.Where("session_id = ?", sessionID)
	}
	if err := db.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count conversation turns: %w", err)
	}
	return n, nil
}

// DeleteTurnsBeforeLimited 删除 CreatedAt 早于 before 的记录，单次最多 limit 条。
func (s *Storage) DeleteTurnsBeforeLimited(ctx context.Context, before time.Time, limit int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("storage not initialized")
	}

	limit = normalizeDeleteLimit(limit)

	var ids []uint64
	db := s.db.WithContext(ctx).Model(&ConversationTurn{}).
		Select("id").
		Where("created_at < ?", before).
		Order("id ASC").
		Limit(limit)
	if err := db.Find(&ids).Error; err != nil {
		return 0, fmt.Errorf("select conversation turn ids: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&ConversationTurn{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete conversation turns: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// AuditQuery 用于查询审计记录的过滤条件。
//
// 所有字段都是可选过滤条件，零值表示不参与过滤。时间范围使用 CreatedAt。
type AuditQuery struct {
	// TraceID 精确匹配请求链路 ID。
	TraceID string
	// SessionID 精确匹配会话。
	SessionID string
	// Action 精确匹配阶段名。
	Action string
	// Status 精确匹配执行状态（running/success/failed）。
	Status string
	// From/To 过滤 CreatedAt 区间：[From, To]（两端包含）。
	From *time.Time
	To   *time.Time
	// Limit 限制返回条数；<=0 使用默认值。
	Limit int
	// Desc 按 CreatedAt 倒序返回。
	Desc bool
}

func (s *Storage) InsertAuditRecord(ctx context.Context, rec *AuditRecord) error {
	if s == nil || s.db == nil {
		return errors.New("storage not initialized")
	}
	if rec == nil {
		return errors.New("audit record is nil")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *Storage) QueryAuditRecords(ctx context.Context, q AuditQuery) ([]AuditRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("storage not initialized")
	}

	limit := normalizeLimit(q.Limit)
	db := s.db.WithContext(ctx).Model(&AuditRecord{})
	if q.TraceID != "" {
		db = db.Where("trace_id = ?", q.TraceID)
	}
	if q.SessionID != "" {
		db = db.Where("session_id = ?", q.SessionID)
	}
	if q.Action != "" {
		db = db.Where("action = ?", q.Action)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.From != nil {
		db = db.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("created_at <= ?", *q.To)
	}
	if q.Desc {
		db = db.Order("created_at DESC").Order("id DESC")
	} else {
		db = db.Order("created_at ASC").Order("id ASC")
	}
	db = db.Limit(limit)

	var out []AuditRecord
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	return out, nil
}

type AuditUpdate struct {
	Status       *string
	ResultJSON   *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

func (s *Storage) UpdateAuditRecord(ctx context.Context, id uint64, up AuditUpdate) error {
	if s == nil || s.db == nil {
		return errors.New("storage not initialized")
	}

	updates := make(map[string]interface{})
	if up.Status != nil {
		updates["status"] = *up.Status
	}
	if up.ResultJSON != nil {
		updates["result_json"] = *up.ResultJSON
	}
	if up.ErrorMessage != nil {
		updates["error_message"] = *up.ErrorMessage
	}
	if up.FinishedAt != nil {
		updates["finished_at"] = *up.FinishedAt
	}

	if len(updates) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&AuditRecord{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update audit record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gormNotFoundError("audit record", id)
	}
	return nil
}

func (s *Storage) DeleteAuditRecordsBeforeLimited(ctx context.Context, before time.Time, limit int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("storage not initialized")
	}

	limit = normalizeDeleteLimit(limit)

	var ids []uint64
	db := s.db.WithContext(ctx).Model(&AuditRecord{}).
		Select("id").
		Where("created_at < ?", before).
		Order("id ASC").
		Limit(limit)
	if err := db.Find(&ids).Error; err != nil {
		return 0, fmt.Errorf("select audit record ids: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&AuditRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete audit records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func normalizeLimit(v int) int {
	if v <= 0 {
		return defaultLimit
	}
	if v > maxLimit {
		return maxLimit
	}
	return v
}

func normalizeDeleteLimit(v int) int {
	if v <= 0 {
		return defaultDeleteLimit
	}
	if v > maxDeleteLimit {
		return maxDeleteLimit
	}
	return v
}

// MaxQueryLimit 为单次查询允许的最大条数。
const MaxQueryLimit = maxLimit

type notFoundError struct {
	Entity string
	ID     uint64
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

// IsNotFound 判断错误是否为记录不存在。
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}

func gormNotFoundError(entity string, id uint64) error {
	return notFoundError{Entity: entity, ID: id}
}
