// Package postgres — вспомогательные функции для работы с БД.
// queries.go содержит миграции, обёртки транзакций и классификацию ошибок PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
)

// Коды ошибок PostgreSQL, которые нужно различать
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// ExecMigrationSQL выполняет один SQL-запрос миграции в транзакции.
// Если запрос упадёт — транзакция откатится автоматически.
func ExecMigrationSQL(ctx context.Context, pool *pgxpool.Pool, version int, sql string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	// Откатываем транзакцию, если что-то пошло не так
	defer tx.Rollback(ctx)

	// Проверяем, не была ли эта миграция уже применена
	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("ошибка проверки миграции: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", version,
	); err != nil {
		return fmt.Errorf("ошибка записи версии миграции: %w", err)
	}

	return tx.Commit(ctx)
}

// InTx выполняет fn в одной транзакции. Любая ошибка fn откатывает всё целиком.
// Конфликт с параллельной транзакцией не повторяется, а возвращается как Conflict:
// вызывающий может безопасно повторить операцию.
func InTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	err := runTx(ctx, pool, fn)
	if err != nil && IsRetryable(err) {
		return common.Wrap(common.KindConflict, err, "параллельное изменение, повторите попытку")
	}
	return err
}

// InTxRetry — как InTx, но повторяет транзакцию до attempts раз при
// сбое сериализации, дедлоке или нарушении уникальности.
// Используется только на известных гоночных путях.
func InTxRetry(ctx context.Context, pool *pgxpool.Pool, attempts int, fn func(pgx.Tx) error) error {
	delay := 20 * time.Millisecond
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = runTx(ctx, pool, fn)
		if err == nil || !(IsRetryable(err) || IsUniqueViolation(err)) {
			return err
		}
		log.WithFields(log.Fields{
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Debug("Повтор транзакции после конфликта")

		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
		if delay < 500*time.Millisecond {
			delay *= 2
		}
	}
	return common.Wrap(common.KindConflict, err, "не удалось завершить операцию из-за конкуренции")
}

func runTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// IsUniqueViolation — нарушение уникального ограничения (23505).
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsCheckViolation — нарушение CHECK-ограничения (23514).
func IsCheckViolation(err error) bool {
	return hasCode(err, codeCheckViolation)
}

// IsRetryable — сбой сериализации (40001) или дедлок (40P01).
func IsRetryable(err error) bool {
	return hasCode(err, codeSerializationFailure) || hasCode(err, codeDeadlockDetected)
}

// IsNoRows — запрос не вернул строк.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
