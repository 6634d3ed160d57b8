// Package cleanup はアカウントロックアウトの定期解除ジョブを提供する。
// lockout_endを過ぎたユーザーのロック状態をクリアし、usersテーブルに
// 期限切れのロックアウトが残らないようにする。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LockoutClearer は期限切れロックアウトの一括解除を抽象化するインターフェース。
// *repository.PostgresUserRepo が満たす。
type LockoutClearer interface {
	ClearExpiredLockouts(ctx context.Context, before time.Time) (int64, error)
}

// ClearedRecorder は解除件数を記録する。nilの場合は記録しない。
type ClearedRecorder interface {
	RecordLockoutsCleared(count int64)
}

// CleanupJob は期限切れロックアウトの解除ジョブ。
// 冪等で、対象がなくてもエラーにならない。
type CleanupJob struct {
	users    LockoutClearer
	recorder ClearedRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(users LockoutClearer, recorder ClearedRecorder, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		users:    users,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は現在時刻までに期限切れとなったロックアウトを解除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()

	cleared, err := j.users.ClearExpiredLockouts(ctx, start)
	if err != nil {
		j.logger.Error("ロックアウト解除ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("ロックアウト解除の実行に失敗: %w", err)
	}

	if j.recorder != nil && cleared > 0 {
		j.recorder.RecordLockoutsCleared(cleared)
	}

	duration := time.Since(start)
	j.logger.Info("ロックアウト解除ジョブが完了しました",
		slog.Int64("cleared_count", cleared),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start はintervalごとにRunを実行する。起動直後に1回実行し、ctxがキャンセルされるまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("ロックアウト解除ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("ロックアウト解除ジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
