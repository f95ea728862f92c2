// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, применяет миграции, собирает репозитории
// и сервисы в один объект Engine и настраивает планировщик.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/cooldown"
	"serotonyl.ru/economy-core/internal/db/postgres"
	"serotonyl.ru/economy-core/internal/engine"
	"serotonyl.ru/economy-core/internal/features/admin"
	"serotonyl.ru/economy-core/internal/features/bank"
	"serotonyl.ru/economy-core/internal/features/bodyguard"
	"serotonyl.ru/economy-core/internal/features/farm"
	"serotonyl.ru/economy-core/internal/features/market"
	"serotonyl.ru/economy-core/internal/features/players"
	"serotonyl.ru/economy-core/internal/features/redpacket"
	"serotonyl.ru/economy-core/internal/features/vip"
	"serotonyl.ru/economy-core/internal/features/work"
	"serotonyl.ru/economy-core/internal/jobs"
	"serotonyl.ru/economy-core/internal/ledger"
	"serotonyl.ru/economy-core/internal/middleware"
	"serotonyl.ru/economy-core/internal/outcome"
)

// Сколько помнить недавно зарегистрированных игроков
const recentTTL = 10 * time.Minute

// App содержит все компоненты приложения.
type App struct {
	Engine    *engine.Engine
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	recent    *middleware.RecentTracker
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := postgres.RunMigrations(ctx, pool, Migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Источник случайности ===
	src, err := outcome.NewSource()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка инициализации генератора: %w", err)
	}

	a := Build(pool, cfg, src)
	log.Info("Движок экономики собран")
	return a, nil
}

// Build собирает репозитории, сервисы и движок поверх готового пула.
// Интеграционные тесты используют его напрямую с детерминированным src.
func Build(pool *pgxpool.Pool, cfg *config.Config, src outcome.Source) *App {
	// === Реестр и репозитории ===
	store := ledger.NewStore(pool, cfg)
	farmRepo := farm.NewRepository(pool)
	packetRepo := redpacket.NewRepository(pool)
	vipRepo := vip.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === Сервисы ===
	durations := cooldown.FromConfig(cfg)
	recent := middleware.NewRecentTracker(recentTTL)

	bankService := bank.NewService(store, cfg)
	farmService := farm.NewService(store, farmRepo, cfg, durations, src)
	packetService := redpacket.NewService(store, packetRepo, cfg, src)
	vipService := vip.NewService(store, vipRepo, cfg)
	adminService := admin.NewService(store, adminRepo, cfg, packetService, vipService)

	eng := engine.New(store, cfg, engine.Services{
		Players:    players.NewService(store, bankService, farmService, cfg, recent),
		Bank:       bankService,
		Work:       work.NewService(store, cfg, durations, src),
		Market:     market.NewService(store, cfg, durations),
		Farm:       farmService,
		Bodyguards: bodyguard.NewService(store, cfg),
		VIP:        vipService,
		RedPackets: packetService,
		Admin:      adminService,
		Cooldowns:  cooldown.NewService(store, durations),
	})

	// === Планировщик задач ===
	scheduler := jobs.NewScheduler(adminService, cfg.AppTimezone)

	return &App{
		Engine:    eng,
		Scheduler: scheduler,
		DB:        pool,
		recent:    recent,
	}
}

// Close освобождает ресурсы приложения.
func (a *App) Close() {
	a.recent.Close()
	a.DB.Close()
}
