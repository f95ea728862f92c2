package redpacket

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

const packetColumns = `packet_id, sender_id, sender_name, total_amount, total_count, remaining,
	claimed_amount, scope_key, created_at, expires_at, refunded`

// Repository — доступ к таблицам red_packets и red_packet_grabs.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert создаёт конверт в текущей транзакции.
func (r *Repository) Insert(ctx context.Context, tx *ledger.Tx, p *Packet) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO red_packets (packet_id, sender_id, sender_name, total_amount, total_count, remaining,
		                         claimed_amount, scope_key, created_at, expires_at, refunded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.SenderID, p.SenderName, p.TotalAmount, p.TotalCount, p.Remaining,
		p.ClaimedAmount, p.Scope, p.CreatedAt, p.ExpiresAt, p.Refunded)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return common.Wrap(common.KindConflict, err, "конверт с таким номером уже есть")
		}
		return fmt.Errorf("ошибка создания конверта: %w", err)
	}
	return nil
}

// Lock блокирует строку конверта FOR UPDATE.
func (r *Repository) Lock(ctx context.Context, tx *ledger.Tx, id string) (*Packet, error) {
	p, err := scanPacket(tx.QueryRow(ctx, `SELECT `+packetColumns+` FROM red_packets WHERE packet_id = $1 FOR UPDATE`, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("красный конверт %s не найден", id)
		}
		return nil, fmt.Errorf("ошибка блокировки конверта: %w", err)
	}
	return p, nil
}

// Update сохраняет изменяемые поля конверта.
func (r *Repository) Update(ctx context.Context, tx *ledger.Tx, p *Packet) error {
	_, err := tx.Exec(ctx, `
		UPDATE red_packets SET remaining = $2, claimed_amount = $3, refunded = $4
		WHERE packet_id = $1
	`, p.ID, p.Remaining, p.ClaimedAmount, p.Refunded)
	if err != nil {
		if postgres.IsCheckViolation(err) {
			return common.Wrap(common.KindConflict, err, "нарушено ограничение конверта")
		}
		return fmt.Errorf("ошибка обновления конверта: %w", err)
	}
	return nil
}

// HasGrab — забирал ли игрок долю из конверта.
func (r *Repository) HasGrab(ctx context.Context, tx *ledger.Tx, packetID, userID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM red_packet_grabs WHERE packet_id = $1 AND user_id = $2)`,
		packetID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки получения: %w", err)
	}
	return exists, nil
}

// InsertGrab записывает долю. Повторное получение ловит уникальный индекс (packet_id, user_id).
func (r *Repository) InsertGrab(ctx context.Context, tx *ledger.Tx, g Grab) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO red_packet_grabs (packet_id, user_id, user_name, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, g.PacketID, g.UserID, g.UserName, g.Amount, g.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return common.Wrap(common.KindConflict, err, "вы уже забрали долю из этого конверта")
		}
		return fmt.Errorf("ошибка записи получения: %w", err)
	}
	return nil
}

// Get читает конверт без блокировки.
func (r *Repository) Get(ctx context.Context, id string) (*Packet, error) {
	p, err := scanPacket(r.db.QueryRow(ctx, `SELECT `+packetColumns+` FROM red_packets WHERE packet_id = $1`, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("красный конверт %s не найден", id)
		}
		return nil, fmt.Errorf("ошибка получения конверта: %w", err)
	}
	return p, nil
}

// Grabs возвращает доли конверта в порядке фиксации (по id вставки).
func (r *Repository) Grabs(ctx context.Context, q querier, packetID string) ([]Grab, error) {
	if q == nil {
		q = r.db
	}
	rows, err := q.Query(ctx, `
		SELECT packet_id, user_id, user_name, amount, created_at
		FROM red_packet_grabs
		WHERE packet_id = $1
		ORDER BY id
	`, packetID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения долей: %w", err)
	}
	grabs, err := pgx.CollectRows(rows, pgx.RowToStructByName[Grab])
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования долей: %w", err)
	}
	return grabs, nil
}

// ExpiredUnrefunded — истёкшие конверты, по которым ещё не было возврата.
func (r *Repository) ExpiredUnrefunded(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT packet_id FROM red_packets
		WHERE expires_at <= $1 AND NOT refunded
		ORDER BY expires_at
	`, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска истёкших конвертов: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования истёкших конвертов: %w", err)
	}
	return ids, nil
}

// DeleteSettled удаляет истёкшие конверты, деньги которых уже розданы или возвращены.
// Доли удаляются каскадом.
func (r *Repository) DeleteSettled(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM red_packets
		WHERE expires_at <= $1 AND (refunded OR remaining = 0)
	`, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления конвертов: %w", err)
	}
	return tag.RowsAffected(), nil
}

// querier — общее у пула и транзакции.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanPacket(row pgx.Row) (*Packet, error) {
	var p Packet
	err := row.Scan(&p.ID, &p.SenderID, &p.SenderName, &p.TotalAmount, &p.TotalCount, &p.Remaining,
		&p.ClaimedAmount, &p.Scope, &p.CreatedAt, &p.ExpiresAt, &p.Refunded)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
