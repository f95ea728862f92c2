package vip

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/db/postgres"
	"serotonyl.ru/economy-core/internal/ledger"
)

// Card — строка таблицы vip_cards.
type Card struct {
	Code      string        `db:"code"`
	CardType  string        `db:"card_type"`
	Duration  time.Duration `db:"-"`
	CreatedBy string        `db:"created_by"`
	Used      bool          `db:"used"`
	UsedBy    *string       `db:"used_by"`
	UsedAt    *time.Time    `db:"used_at"`
	CreatedAt time.Time     `db:"created_at"`
}

// Repository — доступ к vip_cards.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий карт.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertBatch вставляет партию карт одним пакетом запросов.
func (r *Repository) InsertBatch(ctx context.Context, tx *ledger.Tx, cards []Card) error {
	batch := &pgx.Batch{}
	for _, c := range cards {
		batch.Queue(`
			INSERT INTO vip_cards (code, card_type, duration_seconds, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, c.Code, c.CardType, int64(c.Duration/time.Second), c.CreatedBy, c.CreatedAt)
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range cards {
		if _, err := results.Exec(); err != nil {
			if postgres.IsUniqueViolation(err) {
				return common.Wrap(common.KindConflict, err, "совпадение кода карты, повторите выпуск")
			}
			return fmt.Errorf("ошибка выпуска карты: %w", err)
		}
	}
	return nil
}

// Lock блокирует карту по коду.
func (r *Repository) Lock(ctx context.Context, tx *ledger.Tx, code string) (*Card, error) {
	var c Card
	var seconds int64
	err := tx.QueryRow(ctx, `
		SELECT code, card_type, duration_seconds, created_by, used, used_by, used_at, created_at
		FROM vip_cards WHERE code = $1 FOR UPDATE
	`, code).Scan(&c.Code, &c.CardType, &seconds, &c.CreatedBy, &c.Used, &c.UsedBy, &c.UsedAt, &c.CreatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("карта %s не найдена", code)
		}
		return nil, fmt.Errorf("ошибка блокировки карты: %w", err)
	}
	c.Duration = time.Duration(seconds) * time.Second
	return &c, nil
}

// MarkUsed помечает карту использованной.
func (r *Repository) MarkUsed(ctx context.Context, tx *ledger.Tx, code, userID string, now time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE vip_cards SET used = TRUE, used_by = $2, used_at = $3 WHERE code = $1
	`, code, userID, now)
	if err != nil {
		return fmt.Errorf("ошибка погашения карты: %w", err)
	}
	return nil
}

// DeleteUsedBefore удаляет погашенные карты старше before.
func (r *Repository) DeleteUsedBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM vip_cards WHERE used AND used_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки карт: %w", err)
	}
	return tag.RowsAffected(), nil
}
