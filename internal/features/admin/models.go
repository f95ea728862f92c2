// Package admin — права администраторов, выдача денег, бан, статистика, сброс и очистка.
// models.go описывает записи администраторов, попытки ввода пароля и отчёты.
package admin

import "time"

// Admin — строка таблицы admins: кто и когда выдал права.
// Действующий признак — players.is_admin; таблица нужна для аудита.
type Admin struct {
	UserID    string    `db:"user_id"`
	Nickname  string    `db:"nickname"`
	AddedBy   string    `db:"added_by"`
	CreatedAt time.Time `db:"created_at"`
}

// LoginAttempt — попытка ввода пароля (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// SystemStats — сводка по всей экономике.
type SystemStats struct {
	Players      int64
	Transactions int64
	TotalBalance int64
	TotalDeposit int64
	TotalLoans   int64
	ActiveVIPs   int64
	Active24h    int64 // Игроки с изменениями за сутки
}

// CleanupReport — итог плановой очистки.
type CleanupReport struct {
	PacketsRefunded    int
	RefundedAmount     int64
	CardsDeleted       int64
	TransactionsPurged int64
}

// Ограничение попыток ввода пароля
const (
	MaxFailedAttempts = 3
	LockoutPeriod     = time.Hour
)
