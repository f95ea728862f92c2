// Package ledger — journal.go работает с таблицей transactions.
// Записи только добавляются; удаляет их лишь плановая очистка по сроку хранения.
package ledger

import (
	"context"
	"fmt"
	"time"
)

// Append добавляет записи журнала в текущую транзакцию.
func (t *Tx) Append(ctx context.Context, entries ...Entry) error {
	for _, e := range entries {
		_, err := t.Exec(ctx, `
			INSERT INTO transactions (user_id, kind, amount, balance, counterparty_id, description, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, e.UserID, string(e.Kind), e.Amount, e.Balance, e.CounterpartyID, e.Description, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("ошибка записи транзакции (%s, user_id=%s): %w", e.Kind, e.UserID, err)
		}
	}
	return nil
}

// History возвращает последние limit записей игрока, новые первыми.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, kind, amount, balance, counterparty_id, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Amount, &e.Balance,
			&e.CounterpartyID, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// KindStats — сводка по одному типу операций.
type KindStats struct {
	Kind    Kind
	Count   int64
	Income  int64 // Сумма положительных записей
	Expense int64 // Модуль суммы отрицательных записей
}

// Statistics — сводка по журналу игрока.
type Statistics struct {
	TotalIncome  int64
	TotalExpense int64
	ByKind       []KindStats
}

// Statistics группирует журнал игрока по типам операций.
func (s *Store) Statistics(ctx context.Context, userID string) (*Statistics, error) {
	rows, err := s.db.Query(ctx, `
		SELECT kind,
		       COUNT(*),
		       COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
		       COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0)
		FROM transactions
		WHERE user_id = $1
		GROUP BY kind
		ORDER BY kind
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	defer rows.Close()

	stats := &Statistics{}
	for rows.Next() {
		var ks KindStats
		var kind string
		if err := rows.Scan(&kind, &ks.Count, &ks.Income, &ks.Expense); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики: %w", err)
		}
		ks.Kind = Kind(kind)
		stats.TotalIncome += ks.Income
		stats.TotalExpense += ks.Expense
		stats.ByKind = append(stats.ByKind, ks)
	}
	return stats, rows.Err()
}

// DeleteEntriesBefore удаляет записи старше before. Возвращает число удалённых.
func (s *Store) DeleteEntriesBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки транзакций: %w", err)
	}
	return tag.RowsAffected(), nil
}
