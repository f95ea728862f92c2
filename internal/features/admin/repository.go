// Package admin — repository.go работает с таблицами admins и admin_login_attempts
// и выполняет сводные запросы по всей базе.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/economy-core/internal/ledger"
)

// Таблицы, которые очищает полный сброс. Попытки входа и миграции не трогаем.
const resetTables = `red_packet_grabs, red_packets, farm_lands, vip_cards, transactions, admins, players`

// Repository работает с админ-таблицами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Grant записывает выдачу прав.
func (r *Repository) Grant(ctx context.Context, tx *ledger.Tx, a Admin) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO admins (user_id, nickname, added_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET added_by = EXCLUDED.added_by, created_at = EXCLUDED.created_at
	`, a.UserID, a.Nickname, a.AddedBy, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи администратора: %w", err)
	}
	return nil
}

// Revoke удаляет запись о правах.
func (r *Repository) Revoke(ctx context.Context, tx *ledger.Tx, userID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления администратора: %w", err)
	}
	return nil
}

// LogAttempt записывает попытку ввода пароля.
func (r *Repository) LogAttempt(ctx context.Context, userID string, success bool, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO admin_login_attempts (user_id, success, attempt_time) VALUES ($1, $2, $3)`,
		userID, success, at)
	return err
}

// RecentFailures возвращает число неудачных попыток с момента since.
func (r *Repository) RecentFailures(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE user_id = $1 AND success = FALSE AND attempt_time >= $2
	`, userID, since).Scan(&count)
	return count, err
}

// Stats собирает сводку по экономике.
func (r *Repository) Stats(ctx context.Context, now time.Time) (*SystemStats, error) {
	var s SystemStats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(balance), 0),
		       COALESCE(SUM(deposit), 0),
		       COALESCE(SUM(loan_balance), 0),
		       COUNT(*) FILTER (WHERE vip_until > $1),
		       COUNT(*) FILTER (WHERE updated_at > $2)
		FROM players
	`, now, now.Add(-24*time.Hour)).Scan(
		&s.Players, &s.TotalBalance, &s.TotalDeposit, &s.TotalLoans, &s.ActiveVIPs, &s.Active24h,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики игроков: %w", err)
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&s.Transactions); err != nil {
		return nil, fmt.Errorf("ошибка подсчёта транзакций: %w", err)
	}
	return &s, nil
}

// TruncateAll очищает все игровые таблицы в одной транзакции.
func (r *Repository) TruncateAll(ctx context.Context, tx *ledger.Tx) error {
	if _, err := tx.Exec(ctx, `TRUNCATE `+resetTables+` RESTART IDENTITY CASCADE`); err != nil {
		return fmt.Errorf("ошибка сброса данных: %w", err)
	}
	return nil
}
