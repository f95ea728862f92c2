// Package ledger — реестр игроков: долговременное экономическое состояние каждого участника
// и журнал транзакций, который пишется в той же атомарной единице, что и изменения реестра.
// models.go описывает структуры игрока, записи журнала, дельты и действующего лица.
package ledger

import (
	"time"

	"serotonyl.ru/economy-core/internal/lease"
)

// Player — одна строка таблицы players.
type Player struct {
	UserID          string     `db:"user_id"`           // Уникальный идентификатор игрока
	Nickname        string     `db:"nickname"`          // Отображаемое имя
	Balance         int64      `db:"balance"`           // Свободные деньги (≥ 0)
	Deposit         int64      `db:"deposit"`           // Вклад (0 ≤ deposit ≤ deposit_limit)
	DepositLimit    int64      `db:"deposit_limit"`     // Лимит вклада, растёт с credit_level
	CreditLevel     int        `db:"credit_level"`      // Уровень кредита (≥ 1)
	LoanBalance     int64      `db:"loan_balance"`      // Текущий долг (≥ 0)
	LoanCreditLevel int        `db:"loan_credit_level"` // Уровень, определяющий лимит займа
	Worth           int64      `db:"worth"`             // Цена игрока на рынке
	OwnerID         *string    `db:"owner_id"`          // Владелец (nil — свободен)
	OwnedAt         *time.Time `db:"owned_at"`          // Когда куплен
	IsAdmin         bool       `db:"is_admin"`
	CommandBanned   bool       `db:"command_banned"`

	VIPUntil       *time.Time `db:"vip_until"`
	JailUntil      *time.Time `db:"jail_until"`
	BodyguardName  string     `db:"bodyguard_name"`
	BodyguardUntil *time.Time `db:"bodyguard_until"`
	JailWorkIncome int64      `db:"jail_work_income"` // Сколько заработано в тюрьме

	// Метки последних действий для перезарядок
	LastWorkAt     *time.Time `db:"last_work_at"`
	LastRobAt      *time.Time `db:"last_rob_at"`
	LastTransferAt *time.Time `db:"last_transfer_at"`
	LastBuyAt      *time.Time `db:"last_buy_at"`
	LastPlantAt    *time.Time `db:"last_plant_at"`
	LastHarvestAt  *time.Time `db:"last_harvest_at"`

	// Водяные знаки начислений
	LastInterestAt     *time.Time `db:"last_interest_at"`
	LastLoanInterestAt *time.Time `db:"last_loan_interest_at"`

	RegisterSource string    `db:"register_source"` // Чат, где игрок появился
	RegisteredAt   time.Time `db:"registered_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Owned — есть ли у игрока владелец.
func (p *Player) Owned() bool { return p.OwnerID != nil }

// OwnedBy — принадлежит ли игрок id.
func (p *Player) OwnedBy(id string) bool { return p.OwnerID != nil && *p.OwnerID == id }

// VIP — аренда VIP-статуса.
func (p *Player) VIP() lease.Lease { return lease.Of(lease.KindVIP, p.VIPUntil) }

// Jail — срок в тюрьме.
func (p *Player) Jail() lease.Lease { return lease.Of(lease.KindJail, p.JailUntil) }

// Bodyguard — аренда телохранителя.
func (p *Player) Bodyguard() lease.Lease { return lease.Of(lease.KindBodyguard, p.BodyguardUntil) }

// Kind — тип записи журнала.
type Kind string

const (
	KindWork            Kind = "work"
	KindJailWork        Kind = "jail_work"
	KindRob             Kind = "rob"
	KindTransfer        Kind = "transfer"
	KindBuyPlayer       Kind = "buy_player"
	KindRansom          Kind = "ransom"
	KindSnatch          Kind = "snatch"
	KindDeposit         Kind = "deposit"
	KindWithdraw        Kind = "withdraw"
	KindInterest        Kind = "interest"
	KindLoan            Kind = "loan"
	KindLoanInterest    Kind = "loan_interest"
	KindRepay           Kind = "repay"
	KindCreditUpgrade   Kind = "credit_upgrade"
	KindPlant           Kind = "plant"
	KindHarvest         Kind = "harvest"
	KindBuyLand         Kind = "buy_land"
	KindHireGuard       Kind = "hire_guard"
	KindRedPacket       Kind = "red_packet"
	KindRedPacketRefund Kind = "red_packet_refund"
	KindAdminGive       Kind = "admin_give"
	KindSystem          Kind = "system"
)

// Entry — неизменяемая запись журнала транзакций.
type Entry struct {
	ID             int64     `db:"id"`
	UserID         string    `db:"user_id"`
	Kind           Kind      `db:"kind"`
	Amount         int64     `db:"amount"`  // Со знаком: + пришло, − ушло
	Balance        int64     `db:"balance"` // Баланс после операции
	CounterpartyID *string   `db:"counterparty_id"`
	Description    string    `db:"description"`
	CreatedAt      time.Time `db:"created_at"`
}

// NewEntry собирает запись по уже изменённому игроку: снимок баланса берётся из p.
func NewEntry(p *Player, kind Kind, amount int64, counterparty, description string, now time.Time) Entry {
	e := Entry{
		UserID:      p.UserID,
		Kind:        kind,
		Amount:      amount,
		Balance:     p.Balance,
		Description: description,
		CreatedAt:   now,
	}
	if counterparty != "" {
		e.CounterpartyID = &counterparty
	}
	return e
}

// Delta — числовые изменения одной строки.
type Delta struct {
	Balance int64
	Deposit int64
	Loan    int64
	Worth   int64
}

// Actor — кто выполняет операцию. Now фиксируется один раз на всю операцию.
type Actor struct {
	ID    string
	Admin bool
	VIP   bool
	Now   time.Time
}
