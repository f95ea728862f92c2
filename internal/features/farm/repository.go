package farm

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/db/postgres"
	"serotonyl.ru/economy-core/internal/ledger"
)

// Repository — доступ к таблице farm_lands.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий участков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LockPlots блокирует участки игрока. Строка игрока должна быть уже заблокирована.
func (r *Repository) LockPlots(ctx context.Context, tx *ledger.Tx, userID string) ([]*Plot, error) {
	rows, err := tx.Query(ctx, `
		SELECT user_id, plot_index, crop_type, planted_at, harvest_at
		FROM farm_lands
		WHERE user_id = $1
		ORDER BY plot_index
		FOR UPDATE
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокировки участков: %w", err)
	}
	plots, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Plot])
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования участков: %w", err)
	}
	return plots, nil
}

// Plots возвращает участки игрока без блокировки.
func (r *Repository) Plots(ctx context.Context, userID string) ([]*Plot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, plot_index, crop_type, planted_at, harvest_at
		FROM farm_lands
		WHERE user_id = $1
		ORDER BY plot_index
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения участков: %w", err)
	}
	plots, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Plot])
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования участков: %w", err)
	}
	return plots, nil
}

// Insert добавляет пустой участок.
func (r *Repository) Insert(ctx context.Context, tx *ledger.Tx, userID string, index int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO farm_lands (user_id, plot_index, crop_type) VALUES ($1, $2, '')
	`, userID, index)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return common.Wrap(common.KindConflict, err, "участок уже куплен")
		}
		return fmt.Errorf("ошибка покупки участка: %w", err)
	}
	return nil
}

// Save записывает посадку или очистку участков.
func (r *Repository) Save(ctx context.Context, tx *ledger.Tx, plots ...*Plot) error {
	for _, p := range plots {
		_, err := tx.Exec(ctx, `
			UPDATE farm_lands SET crop_type = $3, planted_at = $4, harvest_at = $5
			WHERE user_id = $1 AND plot_index = $2
		`, p.UserID, p.Index, p.CropType, p.PlantedAt, p.HarvestAt)
		if err != nil {
			return fmt.Errorf("ошибка сохранения участка %d: %w", p.Index, err)
		}
	}
	return nil
}
