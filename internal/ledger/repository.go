// Package ledger — repository.go выполняет все операции с таблицей players.
// Любое чтение-вычисление-запись идёт внутри одной транзакции с блокировкой строк FOR UPDATE.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/db/postgres"
)

const playerColumns = `
	user_id, nickname, balance, deposit, deposit_limit, credit_level,
	loan_balance, loan_credit_level, worth, owner_id, owned_at, is_admin, command_banned,
	vip_until, jail_until, bodyguard_name, bodyguard_until, jail_work_income,
	last_work_at, last_rob_at, last_transfer_at, last_buy_at, last_plant_at, last_harvest_at,
	last_interest_at, last_loan_interest_at, register_source, registered_at, updated_at`

// Store — точка доступа к реестру.
type Store struct {
	db  *pgxpool.Pool
	cfg *config.Config
}

// NewStore создаёт реестр поверх пула соединений.
func NewStore(db *pgxpool.Pool, cfg *config.Config) *Store {
	return &Store{db: db, cfg: cfg}
}

// Pool отдаёт пул для репозиториев фич, которым нужны собственные запросы вне транзакции.
func (s *Store) Pool() *pgxpool.Pool { return s.db }

// Tx — одна атомарная единица работы. Встраивает pgx.Tx, поэтому репозитории фич
// выполняют свои запросы в той же транзакции.
type Tx struct {
	pgx.Tx
}

// InTx выполняет fn в одной транзакции; конфликт с параллельным писателем
// возвращается как Conflict без повтора.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	return postgres.InTx(ctx, s.db, func(raw pgx.Tx) error {
		return fn(&Tx{Tx: raw})
	})
}

// InTxRetry — InTx с повтором для известных гоночных путей.
func (s *Store) InTxRetry(ctx context.Context, fn func(tx *Tx) error) error {
	return postgres.InTxRetry(ctx, s.db, s.cfg.DBTxRetries, func(raw pgx.Tx) error {
		return fn(&Tx{Tx: raw})
	})
}

// Get возвращает игрока без блокировки.
func (s *Store) Get(ctx context.Context, id string) (*Player, error) {
	p, err := scanPlayer(s.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE user_id = $1`, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("игрок %s не найден", id)
		}
		return nil, fmt.Errorf("ошибка чтения игрока (user_id=%s): %w", id, err)
	}
	return p, nil
}

// GetOrCreate возвращает игрока, создавая его при первом обращении.
// Уникальность обеспечивает первичный ключ: INSERT ... ON CONFLICT DO NOTHING,
// а проигравший гонку читает уже созданную строку.
func (s *Store) GetOrCreate(ctx context.Context, id, nickname, originScope string, now time.Time) (*Player, bool, error) {
	if id == "" {
		return nil, false, common.InvalidArgument("пустой идентификатор игрока")
	}
	query := `
		INSERT INTO players (user_id, nickname, balance, worth, deposit_limit, register_source,
		                     registered_at, updated_at, last_interest_at, last_loan_interest_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7, $7)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING ` + playerColumns

	var lastErr error
	for attempt := 0; attempt < s.cfg.DBTxRetries; attempt++ {
		p, err := scanPlayer(s.db.QueryRow(ctx, query,
			id, nickname, s.cfg.InitialBalance, s.cfg.InitialWorth, s.cfg.InitialDepositLimit, originScope, now,
		))
		switch {
		case err == nil:
			log.WithFields(log.Fields{
				"user_id": id,
				"source":  originScope,
			}).Info("Новый игрок зарегистрирован")
			return p, true, nil
		case postgres.IsNoRows(err):
			existing, getErr := s.Get(ctx, id)
			if getErr == nil {
				return existing, false, nil
			}
			if !errors.Is(getErr, common.ErrNotFound) {
				return nil, false, getErr
			}
			lastErr = getErr // строку успели удалить между INSERT и SELECT
		case postgres.IsUniqueViolation(err) || postgres.IsRetryable(err):
			lastErr = err
		default:
			return nil, false, fmt.Errorf("ошибка регистрации игрока: %w", err)
		}
	}
	return nil, false, common.Wrap(common.KindConflict, lastErr, "не удалось зарегистрировать игрока")
}

// Lock блокирует строки игроков FOR UPDATE в порядке user_id, чтобы
// параллельные операции над одними и теми же игроками не ловили дедлок.
func (t *Tx) Lock(ctx context.Context, ids ...string) (map[string]*Player, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	rows, err := t.Query(ctx,
		`SELECT `+playerColumns+` FROM players WHERE user_id = ANY($1) ORDER BY user_id FOR UPDATE`, uniq)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокировки игроков: %w", err)
	}
	out, err := collectPlayers(rows)
	if err != nil {
		return nil, err
	}

	locked := make(map[string]*Player, len(out))
	for _, p := range out {
		locked[p.UserID] = p
	}
	for _, id := range uniq {
		if _, ok := locked[id]; !ok {
			return nil, common.NotFound("игрок %s не найден", id)
		}
	}
	return locked, nil
}

// LockOne блокирует одного игрока.
func (t *Tx) LockOne(ctx context.Context, id string) (*Player, error) {
	locked, err := t.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	return locked[id], nil
}

// Save проверяет инварианты и записывает все изменяемые поля игрока.
func (t *Tx) Save(ctx context.Context, p *Player) error {
	if err := Validate(p); err != nil {
		return err
	}
	_, err := t.Exec(ctx, `
		UPDATE players SET
			nickname = $2, balance = $3, deposit = $4, deposit_limit = $5, credit_level = $6,
			loan_balance = $7, loan_credit_level = $8, worth = $9, owner_id = $10, owned_at = $11,
			is_admin = $12, command_banned = $13, vip_until = $14, jail_until = $15,
			bodyguard_name = $16, bodyguard_until = $17, jail_work_income = $18,
			last_work_at = $19, last_rob_at = $20, last_transfer_at = $21, last_buy_at = $22,
			last_plant_at = $23, last_harvest_at = $24, last_interest_at = $25,
			last_loan_interest_at = $26, updated_at = NOW()
		WHERE user_id = $1
	`,
		p.UserID, p.Nickname, p.Balance, p.Deposit, p.DepositLimit, p.CreditLevel,
		p.LoanBalance, p.LoanCreditLevel, p.Worth, p.OwnerID, p.OwnedAt,
		p.IsAdmin, p.CommandBanned, p.VIPUntil, p.JailUntil,
		p.BodyguardName, p.BodyguardUntil, p.JailWorkIncome,
		p.LastWorkAt, p.LastRobAt, p.LastTransferAt, p.LastBuyAt,
		p.LastPlantAt, p.LastHarvestAt, p.LastInterestAt,
		p.LastLoanInterestAt,
	)
	if err != nil {
		if postgres.IsCheckViolation(err) {
			return common.Wrap(common.KindConflict, err, "нарушено ограничение реестра")
		}
		return fmt.Errorf("ошибка сохранения игрока (user_id=%s): %w", p.UserID, err)
	}
	return nil
}

// SaveAll сохраняет несколько игроков в порядке user_id.
func (t *Tx) SaveAll(ctx context.Context, players ...*Player) error {
	sorted := append([]*Player(nil), players...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })
	for _, p := range sorted {
		if err := t.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDelta блокирует игрока, применяет дельту и сохраняет.
func (t *Tx) ApplyDelta(ctx context.Context, id string, d Delta) (*Player, error) {
	out, err := t.ApplyMultiRow(ctx, map[string]Delta{id: d})
	if err != nil {
		return nil, err
	}
	return out[id], nil
}

// ApplyMultiRow списывает с одних строк и начисляет другим в одной транзакции.
// Если хотя бы одна дельта нарушает инвариант, не меняется ничего.
func (t *Tx) ApplyMultiRow(ctx context.Context, deltas map[string]Delta) (map[string]*Player, error) {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	locked, err := t.Lock(ctx, ids...)
	if err != nil {
		return nil, err
	}
	if err := ApplyAll(locked, deltas); err != nil {
		return nil, err
	}
	players := make([]*Player, 0, len(locked))
	for _, p := range locked {
		players = append(players, p)
	}
	if err := t.SaveAll(ctx, players...); err != nil {
		return nil, err
	}
	return locked, nil
}

func scanPlayer(row pgx.Row) (*Player, error) {
	var p Player
	err := row.Scan(
		&p.UserID, &p.Nickname, &p.Balance, &p.Deposit, &p.DepositLimit, &p.CreditLevel,
		&p.LoanBalance, &p.LoanCreditLevel, &p.Worth, &p.OwnerID, &p.OwnedAt, &p.IsAdmin, &p.CommandBanned,
		&p.VIPUntil, &p.JailUntil, &p.BodyguardName, &p.BodyguardUntil, &p.JailWorkIncome,
		&p.LastWorkAt, &p.LastRobAt, &p.LastTransferAt, &p.LastBuyAt, &p.LastPlantAt, &p.LastHarvestAt,
		&p.LastInterestAt, &p.LastLoanInterestAt, &p.RegisterSource, &p.RegisteredAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPlayers(rows pgx.Rows) ([]*Player, error) {
	defer rows.Close()

	var out []*Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования игрока: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
