// Package admin — service.go содержит административные операции.
// Каждая операция сама проверяет права действующего лица.
package admin

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/ledger"
)

// PacketRefunder возвращает остатки истёкших красных конвертов.
type PacketRefunder interface {
	RefundExpired(ctx context.Context, now time.Time) (int, int64, error)
}

// CardCleaner удаляет старые погашенные VIP-карты.
type CardCleaner interface {
	CleanupUsed(ctx context.Context, now time.Time) (int64, error)
}

// Service управляет администрированием.
type Service struct {
	store   *ledger.Store
	repo    *Repository
	cfg     *config.Config
	packets PacketRefunder
	cards   CardCleaner
}

// NewService создаёт сервис администрирования.
func NewService(store *ledger.Store, repo *Repository, cfg *config.Config, packets PacketRefunder, cards CardCleaner) *Service {
	return &Service{store: store, repo: repo, cfg: cfg, packets: packets, cards: cards}
}

func requireAdmin(a ledger.Actor) error {
	if !a.Admin {
		return common.PermissionDenied("команда доступна только администраторам")
	}
	return nil
}

// AddAdmin выдаёт права администратора.
func (s *Service) AddAdmin(ctx context.Context, a ledger.Actor, targetID string) error {
	if err := requireAdmin(a); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, targetID)
		if err != nil {
			return err
		}
		if p.IsAdmin || s.cfg.IsAdminID(targetID) {
			return common.Conflict("%s уже администратор", p.Nickname)
		}
		p.IsAdmin = true
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		return s.repo.Grant(ctx, tx, Admin{UserID: p.UserID, Nickname: p.Nickname, AddedBy: a.ID, CreatedAt: a.Now})
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"admin": a.ID, "target": targetID}).Warn("Выданы права администратора")
	return nil
}

// RemoveAdmin снимает права. Администраторов из конфигурации снять нельзя.
func (s *Service) RemoveAdmin(ctx context.Context, a ledger.Actor, targetID string) error {
	if err := requireAdmin(a); err != nil {
		return err
	}
	if s.cfg.IsAdminID(targetID) {
		return common.PermissionDenied("администратор задан в конфигурации")
	}
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, targetID)
		if err != nil {
			return err
		}
		if !p.IsAdmin {
			return common.NotFound("%s не администратор", p.Nickname)
		}
		p.IsAdmin = false
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		return s.repo.Revoke(ctx, tx, targetID)
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"admin": a.ID, "target": targetID}).Warn("Сняты права администратора")
	return nil
}

// GiveBalance начисляет (или при отрицательной сумме списывает) деньги игроку.
func (s *Service) GiveBalance(ctx context.Context, a ledger.Actor, targetID string, amount int64) (int64, error) {
	if err := requireAdmin(a); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, common.InvalidArgument("сумма не может быть нулевой")
	}
	var balance int64
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.ApplyDelta(ctx, targetID, ledger.Delta{Balance: amount})
		if err != nil {
			return err
		}
		balance = p.Balance
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindAdminGive, amount, a.ID, "выдача администратором", a.Now))
	})
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"admin": a.ID, "target": targetID, "amount": amount}).Warn("Администратор изменил баланс")
	return balance, nil
}

// ToggleBan запрещает или снова разрешает игроку команды. Возвращает новое состояние.
func (s *Service) ToggleBan(ctx context.Context, a ledger.Actor, targetID string) (bool, error) {
	if err := requireAdmin(a); err != nil {
		return false, err
	}
	if targetID == a.ID {
		return false, common.InvalidArgument("нельзя заблокировать самого себя")
	}
	var banned bool
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, targetID)
		if err != nil {
			return err
		}
		if p.IsAdmin || s.cfg.IsAdminID(targetID) {
			return common.PermissionDenied("нельзя заблокировать администратора")
		}
		p.CommandBanned = !p.CommandBanned
		banned = p.CommandBanned
		return tx.Save(ctx, p)
	})
	if err != nil {
		return false, err
	}
	log.WithFields(log.Fields{"admin": a.ID, "target": targetID, "banned": banned}).Warn("Изменён бан игрока")
	return banned, nil
}

// SystemStats — сводка по экономике.
func (s *Service) SystemStats(ctx context.Context, a ledger.Actor) (*SystemStats, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx, a.Now)
}

// Snapshot пишет сводку по экономике в лог. Вызывается планировщиком раз в сутки.
func (s *Service) Snapshot(ctx context.Context, now time.Time) (*SystemStats, error) {
	st, err := s.repo.Stats(ctx, now)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"players":       st.Players,
		"transactions":  st.Transactions,
		"total_balance": st.TotalBalance,
		"total_deposit": st.TotalDeposit,
		"total_loans":   st.TotalLoans,
		"active_vips":   st.ActiveVIPs,
		"active_24h":    st.Active24h,
	}).Info("Сводка экономики")
	return st, nil
}

// ResetAllData очищает все игровые данные. Требует пароль администратора.
// После MaxFailedAttempts неудач за LockoutPeriod попытки блокируются.
func (s *Service) ResetAllData(ctx context.Context, a ledger.Actor, password string) error {
	if err := requireAdmin(a); err != nil {
		return err
	}
	if s.cfg.AdminPasswordHash == "" {
		return common.PermissionDenied("пароль администратора не настроен, сброс запрещён")
	}

	failures, err := s.repo.RecentFailures(ctx, a.ID, a.Now.Add(-LockoutPeriod))
	if err != nil {
		return fmt.Errorf("ошибка проверки попыток: %w", err)
	}
	if failures >= MaxFailedAttempts {
		return &common.Error{
			Kind: common.KindPermissionDenied,
			Msg:  "слишком много попыток, подождите 1 час",
			Wait: LockoutPeriod,
		}
	}

	match := VerifyPassword(password, s.cfg.AdminPasswordHash)
	if err := s.repo.LogAttempt(ctx, a.ID, match, a.Now); err != nil {
		log.WithError(err).Error("Не удалось записать попытку ввода пароля")
	}
	if !match {
		return common.PermissionDenied("неверный пароль")
	}

	if err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		return s.repo.TruncateAll(ctx, tx)
	}); err != nil {
		return err
	}
	log.WithField("admin", a.ID).Warn("=== Все игровые данные сброшены ===")
	return nil
}

// CleanupExpired — плановая очистка: возврат истёкших конвертов, удаление старых карт
// и журнала старше срока хранения. Вызывается планировщиком и администратором.
func (s *Service) CleanupExpired(ctx context.Context, now time.Time) (*CleanupReport, error) {
	var report CleanupReport
	var err error

	report.PacketsRefunded, report.RefundedAmount, err = s.packets.RefundExpired(ctx, now)
	if err != nil {
		return nil, err
	}
	report.CardsDeleted, err = s.cards.CleanupUsed(ctx, now)
	if err != nil {
		return nil, err
	}
	report.TransactionsPurged, err = s.store.DeleteEntriesBefore(ctx, now.AddDate(0, 0, -s.cfg.TransactionRetentionDays))
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"packets_refunded":    report.PacketsRefunded,
		"refunded_amount":     report.RefundedAmount,
		"cards_deleted":       report.CardsDeleted,
		"transactions_purged": report.TransactionsPurged,
	}).Info("Очистка завершена")
	return &report, nil
}

// CleanupExpiredAs — CleanupExpired от имени администратора.
func (s *Service) CleanupExpiredAs(ctx context.Context, a ledger.Actor) (*CleanupReport, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	return s.CleanupExpired(ctx, a.Now)
}
