// Package testkit — общие помощники интеграционных тестов поверх настоящего PostgreSQL.
// Тесты пропускаются, если TEST_DATABASE_URL не задан.
package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-core/internal/app"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/db/postgres"
	"serotonyl.ru/economy-core/internal/outcome"
)

const envDSN = "TEST_DATABASE_URL"

// Pool подключается к тестовой базе, применяет миграции и очищает игровые таблицы.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(envDSN)
	if dsn == "" {
		t.Skipf("%s не задан, интеграционный тест пропущен", envDSN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Open(ctx, dsn, 20, 2)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(ctx, pool, app.Migrations))
	_, err = pool.Exec(ctx, `TRUNCATE red_packet_grabs, red_packets, farm_lands, vip_cards,
		transactions, admins, admin_login_attempts, players RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

// Config — конфигурация по умолчанию со встроенным каталогом.
func Config(t testing.TB) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

// App собирает приложение поверх тестовой базы с детерминированной случайностью.
func App(t testing.TB, cfg *config.Config) *app.App {
	t.Helper()
	a := app.Build(Pool(t), cfg, outcome.NewSeeded(7, 11))
	t.Cleanup(a.Close)
	return a
}
