// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
	"time"
)

// Project は作業階層の最上位を表す。
// 削除するとMilestone、さらにその配下のTaskItemがCASCADE削除される。
type Project struct {
	ID          int64
	Name        string
	Description string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Milestone はProjectに属するマイルストーンを表す。
type Milestone struct {
	ID          int64
	Name        string
	Description string
	ProjectID   int64
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskItem はMilestoneに属するタスクを表す。
type TaskItem struct {
	ID          int64
	Name        string
	Description string
	Priority    Priority
	MilestoneID int64
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Priority はタスクの優先度を表す。DBにはSMALLINTで保存する。
type Priority int

const (
	// PriorityLow は低優先度。
	PriorityLow Priority = iota
	// PriorityMedium は中優先度。
	PriorityMedium
	// PriorityHigh は高優先度。
	PriorityHigh
)

// String は優先度の表示名を返す。
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// IsValid は定義済みの優先度かどうかを返す。
func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// ParsePriority は表示名（大文字小文字を区別しない）から優先度を解析する。
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return 0, fmt.Errorf("unknown priority: %q", s)
	}
}
