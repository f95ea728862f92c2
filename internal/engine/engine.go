// Package engine — единая точка входа в экономику. Каждый метод соответствует одному
// внешнему действию: определяет действующее лицо, фиксирует время операции,
// вызывает нужный сервис и логирует результат.
package engine

import (
	"context"
	"time"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/cooldown"
	"serotonyl.ru/economy-core/internal/features/admin"
	"serotonyl.ru/economy-core/internal/features/bank"
	"serotonyl.ru/economy-core/internal/features/bodyguard"
	"serotonyl.ru/economy-core/internal/features/farm"
	"serotonyl.ru/economy-core/internal/features/market"
	"serotonyl.ru/economy-core/internal/features/players"
	"serotonyl.ru/economy-core/internal/features/redpacket"
	"serotonyl.ru/economy-core/internal/features/vip"
	"serotonyl.ru/economy-core/internal/features/work"
	"serotonyl.ru/economy-core/internal/ledger"
	"serotonyl.ru/economy-core/internal/middleware"
)

// Services — сервисы, из которых собирается движок.
type Services struct {
	Players    *players.Service
	Bank       *bank.Service
	Work       *work.Service
	Market     *market.Service
	Farm       *farm.Service
	Bodyguards *bodyguard.Service
	VIP        *vip.Service
	RedPackets *redpacket.Service
	Admin      *admin.Service
	Cooldowns  *cooldown.Service
}

// Engine — фасад над всеми сервисами.
type Engine struct {
	store *ledger.Store
	cfg   *config.Config
	svc   Services
	now   func() time.Time
}

// New создаёт движок.
func New(store *ledger.Store, cfg *config.Config, svc Services) *Engine {
	return &Engine{store: store, cfg: cfg, svc: svc, now: time.Now}
}

// ActorFor строит действующее лицо по строке реестра.
// Администратор — из ADMIN_IDS или с флагом is_admin; VIP — вечный у администратора
// (если включено) или по активной аренде.
func ActorFor(p *ledger.Player, cfg *config.Config, now time.Time) (ledger.Actor, error) {
	isAdmin := cfg.IsAdminID(p.UserID) || p.IsAdmin
	if p.CommandBanned && !isAdmin {
		return ledger.Actor{}, common.PermissionDenied("вам запрещено использовать команды")
	}
	return ledger.Actor{
		ID:    p.UserID,
		Admin: isAdmin,
		VIP:   (isAdmin && cfg.AdminPermanentVIP) || p.VIP().Active(now),
		Now:   now,
	}, nil
}

// resolve читает игрока и строит действующее лицо. Время фиксируется здесь один раз.
func (e *Engine) resolve(ctx context.Context, userID string) (ledger.Actor, *ledger.Player, error) {
	p, err := e.store.Get(ctx, userID)
	if err != nil {
		if common.KindOf(err) == common.KindNotFound {
			e.svc.Players.Forget(userID)
			return ledger.Actor{}, nil, common.Newf(common.KindNotRegistered, "игрок %s не зарегистрирован", userID)
		}
		return ledger.Actor{}, nil, err
	}
	a, err := ActorFor(p, e.cfg, e.now())
	if err != nil {
		return ledger.Actor{}, nil, err
	}
	return a, p, nil
}

// call — общий путь любого действия: действующее лицо, вызов, лог.
func call[T any](ctx context.Context, e *Engine, op, userID string, fn func(a ledger.Actor, p *ledger.Player) (T, error)) (out T, err error) {
	started := time.Now()
	defer func() { middleware.LogCall(op, userID, started, err) }()

	a, p, err := e.resolve(ctx, userID)
	if err != nil {
		return out, err
	}
	return fn(a, p)
}

// === Игроки ===

// Register регистрирует игрока (или возвращает существующего).
func (e *Engine) Register(ctx context.Context, userID, nickname, scope string) (p *ledger.Player, err error) {
	started := time.Now()
	defer func() { middleware.LogCall("register", userID, started, err) }()
	p, _, err = e.svc.Players.Register(ctx, userID, nickname, scope, e.now())
	return p, err
}

// Ensure — авторегистрация перед командой.
func (e *Engine) Ensure(ctx context.Context, userID, nickname, scope string) error {
	return e.svc.Players.Ensure(ctx, userID, nickname, scope, e.now())
}

// Profile — профиль игрока со сведениями о вкладе, займе, ферме и арендах.
func (e *Engine) Profile(ctx context.Context, userID string) (*players.Profile, error) {
	return call(ctx, e, "profile", userID, func(a ledger.Actor, _ *ledger.Player) (*players.Profile, error) {
		return e.svc.Players.Profile(ctx, a)
	})
}

// Restart возвращает числа игрока к начальным значениям.
func (e *Engine) Restart(ctx context.Context, userID string) (*ledger.Player, error) {
	return call(ctx, e, "restart", userID, func(a ledger.Actor, _ *ledger.Player) (*ledger.Player, error) {
		return e.svc.Players.Restart(ctx, a)
	})
}

// History — последние записи журнала игрока, новые первыми.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]ledger.Entry, error) {
	return call(ctx, e, "history", userID, func(a ledger.Actor, _ *ledger.Player) ([]ledger.Entry, error) {
		return e.svc.Players.History(ctx, a, limit)
	})
}

// Statistics — доходы и расходы игрока по типам операций.
func (e *Engine) Statistics(ctx context.Context, userID string) (*ledger.Statistics, error) {
	return call(ctx, e, "statistics", userID, func(a ledger.Actor, _ *ledger.Player) (*ledger.Statistics, error) {
		return e.svc.Players.Statistics(ctx, a)
	})
}

// CooldownStatus — сколько ждать до следующего действия.
func (e *Engine) CooldownStatus(ctx context.Context, userID string, action cooldown.Action) (cooldown.Status, error) {
	return call(ctx, e, "cooldown_status", userID, func(a ledger.Actor, _ *ledger.Player) (cooldown.Status, error) {
		if a.Admin {
			return cooldown.Status{Ready: true}, nil
		}
		return e.svc.Cooldowns.Check(ctx, a.ID, action, a.Now)
	})
}

// === Банк ===

// Deposit переводит сумму с баланса во вклад.
func (e *Engine) Deposit(ctx context.Context, userID string, amount int64) (*bank.AccountResult, error) {
	return call(ctx, e, "deposit", userID, func(a ledger.Actor, _ *ledger.Player) (*bank.AccountResult, error) {
		return e.svc.Bank.Deposit(ctx, a, amount)
	})
}

// Withdraw снимает сумму со вклада на баланс.
func (e *Engine) Withdraw(ctx context.Context, userID string, amount int64) (*bank.AccountResult, error) {
	return call(ctx, e, "withdraw", userID, func(a ledger.Actor, _ *ledger.Player) (*bank.AccountResult, error) {
		return e.svc.Bank.Withdraw(ctx, a, amount)
	})
}

// ClaimInterest забирает накопленные проценты по вкладу.
func (e *Engine) ClaimInterest(ctx context.Context, userID string) (*bank.AccountResult, error) {
	return call(ctx, e, "claim_interest", userID, func(a ledger.Actor, _ *ledger.Player) (*bank.AccountResult, error) {
		return e.svc.Bank.ClaimInterest(ctx, a)
	})
}

// UpgradeCredit повышает кредитный уровень и лимит вклада.
func (e *Engine) UpgradeCredit(ctx context.Context, userID string) (*bank.CreditResult, error) {
	return call(ctx, e, "upgrade_credit", userID, func(a ledger.Actor, _ *ledger.Player) (*bank.CreditResult, error) {
		return e.svc.Bank.UpgradeCredit(ctx, a)
	})
}

// ApplyLoan выдаёт заём в пределах лимита.
func (e *Engine) ApplyLoan(ctx context.Context, userID string, amount int64) (*bank.LoanResult, error) {
	return call(ctx, e, "apply_loan", userID, func(a ledger.Actor, _ *ledger.Player) (*bank.LoanResult, error) {
		return e.svc.Bank.ApplyLoan(ctx, a, amount)
	})
}

// RepayLoan гасит долг, не больше текущего.
func (e *Engine) RepayLoan(ctx context.Context, userID string, amount int64) (*bank.LoanResult, error) {
	return call(ctx, e, "repay_loan", userID, func(a ledger.Actor, _ *ledger.Player) (*bank.LoanResult, error) {
		return e.svc.Bank.RepayLoan(ctx, a, amount)
	})
}

// === Работа, ограбления, переводы ===

// Work — смена на работе; часть дохода уходит владельцу.
func (e *Engine) Work(ctx context.Context, userID string) (*work.WorkResult, error) {
	return call(ctx, e, "work", userID, func(a ledger.Actor, _ *ledger.Player) (*work.WorkResult, error) {
		return e.svc.Work.Work(ctx, a)
	})
}

// JailWork — работа в тюрьме.
func (e *Engine) JailWork(ctx context.Context, userID string) (*work.WorkResult, error) {
	return call(ctx, e, "jail_work", userID, func(a ledger.Actor, _ *ledger.Player) (*work.WorkResult, error) {
		return e.svc.Work.JailWork(ctx, a)
	})
}

// Rob грабит цель выбранной стратегией.
func (e *Engine) Rob(ctx context.Context, userID, targetID, strategy string) (*work.RobResult, error) {
	return call(ctx, e, "rob", userID, func(a ledger.Actor, _ *ledger.Player) (*work.RobResult, error) {
		return e.svc.Work.Rob(ctx, a, targetID, strategy)
	})
}

// Transfer переводит деньги другому игроку с комиссией.
func (e *Engine) Transfer(ctx context.Context, userID, toID string, amount int64) (*work.TransferResult, error) {
	return call(ctx, e, "transfer", userID, func(a ledger.Actor, _ *ledger.Player) (*work.TransferResult, error) {
		return e.svc.Work.Transfer(ctx, a, toID, amount)
	})
}

// === Рынок ===

// Buy покупает свободного игрока.
func (e *Engine) Buy(ctx context.Context, userID, targetID string) (*market.DealResult, error) {
	return call(ctx, e, "buy", userID, func(a ledger.Actor, _ *ledger.Player) (*market.DealResult, error) {
		return e.svc.Market.Buy(ctx, a, targetID)
	})
}

// Release отпускает своего игрока.
func (e *Engine) Release(ctx context.Context, userID, targetID string) (*market.DealResult, error) {
	return call(ctx, e, "release", userID, func(a ledger.Actor, _ *ledger.Player) (*market.DealResult, error) {
		return e.svc.Market.Release(ctx, a, targetID)
	})
}

// Ransom выкупает игрока у его владельца.
func (e *Engine) Ransom(ctx context.Context, userID string) (*market.DealResult, error) {
	return call(ctx, e, "ransom", userID, func(a ledger.Actor, _ *ledger.Player) (*market.DealResult, error) {
		return e.svc.Market.Ransom(ctx, a)
	})
}

// Snatch перехватывает чужого игрока с компенсацией владельцу.
func (e *Engine) Snatch(ctx context.Context, userID, targetID string) (*market.DealResult, error) {
	return call(ctx, e, "snatch", userID, func(a ledger.Actor, _ *ledger.Player) (*market.DealResult, error) {
		return e.svc.Market.Snatch(ctx, a, targetID)
	})
}

// MarketList — свободные игроки. Пустой scope — по всем чатам.
func (e *Engine) MarketList(ctx context.Context, userID, scope string, limit int) ([]*ledger.Player, error) {
	return call(ctx, e, "market_list", userID, func(_ ledger.Actor, _ *ledger.Player) ([]*ledger.Player, error) {
		return e.svc.Market.List(ctx, scope, limit)
	})
}

// Rankings — рейтинг игроков по выбранному полю.
func (e *Engine) Rankings(ctx context.Context, userID string, by ledger.RankBy, limit int) ([]ledger.RankRow, error) {
	return call(ctx, e, "rankings", userID, func(_ ledger.Actor, _ *ledger.Player) ([]ledger.RankRow, error) {
		return e.svc.Market.Rankings(ctx, by, limit)
	})
}

// === Ферма и охрана ===

// BuyLand покупает следующий участок фермы.
func (e *Engine) BuyLand(ctx context.Context, userID string) (*farm.LandResult, error) {
	return call(ctx, e, "buy_land", userID, func(a ledger.Actor, _ *ledger.Player) (*farm.LandResult, error) {
		return e.svc.Farm.BuyLand(ctx, a)
	})
}

// Plant сажает культуру на участок plot; plot == 0 — на все свободные.
func (e *Engine) Plant(ctx context.Context, userID, crop string, plot int) (*farm.PlantResult, error) {
	return call(ctx, e, "plant", userID, func(a ledger.Actor, _ *ledger.Player) (*farm.PlantResult, error) {
		return e.svc.Farm.Plant(ctx, a, crop, plot)
	})
}

// Harvest собирает созревший урожай со всех участков.
func (e *Engine) Harvest(ctx context.Context, userID string) (*farm.HarvestResult, error) {
	return call(ctx, e, "harvest", userID, func(a ledger.Actor, _ *ledger.Player) (*farm.HarvestResult, error) {
		return e.svc.Farm.Harvest(ctx, a)
	})
}

// HireBodyguard нанимает охрану из каталога.
func (e *Engine) HireBodyguard(ctx context.Context, userID, name string) (*bodyguard.HireResult, error) {
	return call(ctx, e, "hire_bodyguard", userID, func(a ledger.Actor, _ *ledger.Player) (*bodyguard.HireResult, error) {
		return e.svc.Bodyguards.Hire(ctx, a, name)
	})
}

// === VIP ===

// GenerateVIPCards выпускает VIP-карты (только администратор).
func (e *Engine) GenerateVIPCards(ctx context.Context, userID, cardType string, hours, count int) ([]vip.Card, error) {
	return call(ctx, e, "generate_vip_cards", userID, func(a ledger.Actor, _ *ledger.Player) ([]vip.Card, error) {
		return e.svc.VIP.Generate(ctx, a, cardType, hours, count)
	})
}

// RedeemVIPCard активирует VIP-карту по коду.
func (e *Engine) RedeemVIPCard(ctx context.Context, userID, code string) (*vip.RedeemResult, error) {
	return call(ctx, e, "redeem_vip_card", userID, func(a ledger.Actor, _ *ledger.Player) (*vip.RedeemResult, error) {
		return e.svc.VIP.Redeem(ctx, a, code)
	})
}

// VIPStatus — состояние VIP игрока.
func (e *Engine) VIPStatus(ctx context.Context, userID string) (*vip.Status, error) {
	return call(ctx, e, "vip_status", userID, func(a ledger.Actor, _ *ledger.Player) (*vip.Status, error) {
		return e.svc.VIP.Status(ctx, a)
	})
}

// === Красные конверты ===

// SendRedPacket отправляет красный конверт в чат.
func (e *Engine) SendRedPacket(ctx context.Context, userID, scope string, amount int64, count int) (*redpacket.SendResult, error) {
	return call(ctx, e, "send_red_packet", userID, func(a ledger.Actor, p *ledger.Player) (*redpacket.SendResult, error) {
		return e.svc.RedPackets.Send(ctx, a, p.Nickname, scope, amount, count)
	})
}

// GrabRedPacket забирает случайную долю конверта.
func (e *Engine) GrabRedPacket(ctx context.Context, userID, scope, packetID string) (*redpacket.GrabResult, error) {
	return call(ctx, e, "grab_red_packet", userID, func(a ledger.Actor, p *ledger.Player) (*redpacket.GrabResult, error) {
		return e.svc.RedPackets.Grab(ctx, a, p.Nickname, scope, packetID)
	})
}

// RedPacketDetails — конверт, его доли и самый удачливый получатель.
func (e *Engine) RedPacketDetails(ctx context.Context, userID, packetID string) (*redpacket.Details, error) {
	return call(ctx, e, "red_packet_details", userID, func(_ ledger.Actor, _ *ledger.Player) (*redpacket.Details, error) {
		return e.svc.RedPackets.Details(ctx, packetID)
	})
}

// === Администрирование ===

// AddAdmin выдаёт права администратора.
func (e *Engine) AddAdmin(ctx context.Context, userID, targetID string) error {
	_, err := call(ctx, e, "add_admin", userID, func(a ledger.Actor, _ *ledger.Player) (struct{}, error) {
		return struct{}{}, e.svc.Admin.AddAdmin(ctx, a, targetID)
	})
	return err
}

// RemoveAdmin снимает права администратора.
func (e *Engine) RemoveAdmin(ctx context.Context, userID, targetID string) error {
	_, err := call(ctx, e, "remove_admin", userID, func(a ledger.Actor, _ *ledger.Player) (struct{}, error) {
		return struct{}{}, e.svc.Admin.RemoveAdmin(ctx, a, targetID)
	})
	return err
}

// GiveBalance возвращает новый баланс цели.
func (e *Engine) GiveBalance(ctx context.Context, userID, targetID string, amount int64) (int64, error) {
	return call(ctx, e, "give_balance", userID, func(a ledger.Actor, _ *ledger.Player) (int64, error) {
		return e.svc.Admin.GiveBalance(ctx, a, targetID, amount)
	})
}

// ToggleBan возвращает новое состояние бана.
func (e *Engine) ToggleBan(ctx context.Context, userID, targetID string) (bool, error) {
	return call(ctx, e, "toggle_ban", userID, func(a ledger.Actor, _ *ledger.Player) (bool, error) {
		return e.svc.Admin.ToggleBan(ctx, a, targetID)
	})
}

// SystemStats — сводка по всей экономике.
func (e *Engine) SystemStats(ctx context.Context, userID string) (*admin.SystemStats, error) {
	return call(ctx, e, "system_stats", userID, func(a ledger.Actor, _ *ledger.Player) (*admin.SystemStats, error) {
		return e.svc.Admin.SystemStats(ctx, a)
	})
}

// ResetAllData стирает все игровые данные и кэш недавних регистраций.
func (e *Engine) ResetAllData(ctx context.Context, userID, password string) error {
	_, err := call(ctx, e, "reset_all_data", userID, func(a ledger.Actor, _ *ledger.Player) (struct{}, error) {
		if err := e.svc.Admin.ResetAllData(ctx, a, password); err != nil {
			return struct{}{}, err
		}
		e.svc.Players.ForgetRecent()
		return struct{}{}, nil
	})
	return err
}

// CleanupExpired запускает очистку истёкших данных вручную.
func (e *Engine) CleanupExpired(ctx context.Context, userID string) (*admin.CleanupReport, error) {
	return call(ctx, e, "cleanup_expired", userID, func(a ledger.Actor, _ *ledger.Player) (*admin.CleanupReport, error) {
		return e.svc.Admin.CleanupExpiredAs(ctx, a)
	})
}
