// Package repair はフォローエッジの整合性修復ジョブを提供する。
// フォローエッジの作成・削除は2つのプロフィールドキュメントへの
// 独立した書き込みで行われるため、途中失敗で片側エッジが残ることがある。
// フォローもアンフォローも発起側のfollowingリストを先に書くため、
// このジョブはfollowingリストを正として全プロフィールを収束させ、
// 削除済みアカウントへのダングリングエッジを取り除く。
package repair

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/mura/internal/metrics"
	"github.com/hitoshi/mura/internal/model"
	"github.com/hitoshi/mura/internal/repository"
)

// RepairJob はフォローエッジの整合性修復ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な修復処理を保証する。
type RepairJob struct {
	profileRepo repository.ProfileRepository
	logger      *slog.Logger
	collector   metrics.MetricsCollector
}

// NewRepairJob は新しいRepairJobを生成する。collectorはnilを許容する。
func NewRepairJob(profileRepo repository.ProfileRepository, logger *slog.Logger, collector metrics.MetricsCollector) *RepairJob {
	return &RepairJob{
		profileRepo: profileRepo,
		logger:      logger,
		collector:   collector,
	}
}

// Start は指定間隔のティッカーで修復ジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *RepairJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("エッジ修復ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := j.Run(ctx); err != nil {
		j.logger.Error("エッジ修復の実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("エッジ修復ジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("エッジ修復の実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Run は全プロフィールを走査して片側エッジを修復する。
// フォローもアンフォローも発起側（following側）のドキュメントを先に
// 書き込むため、followerリストではなくfollowingリストを正とする。
// 修復内容:
//   - AのfollowingにBがあるのにBのfollowerにAがない
//     → Bのfollowerに補完（中断されたフォローの完遂）
//   - AのfollowerにBがあるのにBのfollowingにAがない
//     → AのfollowerからBを除去（中断されたアンフォローの完遂）
//   - エッジの相手プロフィールが存在しない → エッジを除去
//
// 冪等: 整合している状態で実行しても何も変更しない。
func (j *RepairJob) Run(ctx context.Context) error {
	start := time.Now()

	profiles, err := j.profileRepo.FindAll(ctx)
	if err != nil {
		return err
	}

	byUserID := make(map[string]*model.Profile, len(profiles))
	for _, p := range profiles {
		byUserID[p.UserID] = p
	}

	dirty := make(map[string]*model.Profile)
	repaired := 0

	for _, p := range profiles {
		// following側: 相手のfollowerにこちらが含まれているか
		for _, ref := range p.Following {
			other, ok := byUserID[ref.User]
			if !ok {
				continue // ダングリングエッジは下のパスで除去する
			}
			if !other.Follower.Contains(p.UserID) {
				other.Follower = other.Follower.Prepend(p.UserID)
				dirty[other.UserID] = other
				repaired++
			}
		}

		// follower側: 相手のfollowingに存在しないエントリは
		// 中断されたアンフォローの残骸なので除去する
		kept := make(model.UserRefList, 0, len(p.Follower))
		removedFollowers := 0
		for _, ref := range p.Follower {
			other, ok := byUserID[ref.User]
			if ok && !other.Following.Contains(p.UserID) {
				removedFollowers++
				continue
			}
			kept = append(kept, ref)
		}
		if removedFollowers > 0 {
			p.Follower = kept
			dirty[p.UserID] = p
			repaired += removedFollowers
		}

		// ダングリングエッジの除去（削除済みアカウントへの参照）
		if removed := j.pruneDanglingEdges(p, byUserID); removed > 0 {
			dirty[p.UserID] = p
			repaired += removed
		}
	}

	for _, p := range dirty {
		if err := j.profileRepo.SaveEdges(ctx, p); err != nil {
			j.logger.Error("修復済みエッジの保存に失敗しました",
				slog.String("user_id", p.UserID),
				slog.String("error", err.Error()),
			)
			continue
		}
	}

	if j.collector != nil {
		for i := 0; i < repaired; i++ {
			j.collector.RecordEdgeRepaired()
		}
	}

	duration := time.Since(start)
	j.logger.Info("エッジ修復ジョブが完了しました",
		slog.Int("profile_count", len(profiles)),
		slog.Int("repaired_count", repaired),
		slog.Int("updated_profiles", len(dirty)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// pruneDanglingEdges は存在しないプロフィールへのエッジを取り除き、
// 除去した件数を返す。
func (j *RepairJob) pruneDanglingEdges(p *model.Profile, byUserID map[string]*model.Profile) int {
	removed := 0

	var following model.UserRefList
	for _, ref := range p.Following {
		if _, ok := byUserID[ref.User]; ok {
			following = append(following, ref)
		} else {
			removed++
		}
	}

	var follower model.UserRefList
	for _, ref := range p.Follower {
		if _, ok := byUserID[ref.User]; ok {
			follower = append(follower, ref)
		} else {
			removed++
		}
	}

	if removed > 0 {
		p.Following = following
		p.Follower = follower
	}
	return removed
}
