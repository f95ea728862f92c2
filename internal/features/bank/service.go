// Package bank — service.go выполняет банковские операции.
// Каждая операция: блокировка строки игрока, начисления, изменение, проверка инвариантов,
// запись журнала — всё в одной транзакции.
package bank

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/ledger"
)

// Service управляет вкладами и займами.
type Service struct {
	store *ledger.Store
	cfg   *config.Config
}

// NewService создаёт банковский сервис.
func NewService(store *ledger.Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// AccountResult — состояние счёта после операции.
type AccountResult struct {
	Amount       int64 // Сумма операции
	Interest     int64 // Проценты, перенесённые в баланс перед операцией
	Balance      int64
	Deposit      int64
	DepositLimit int64
}

// CreditResult — итог повышения кредитного уровня.
type CreditResult struct {
	Cost         int64
	NewLevel     int
	DepositLimit int64
	Balance      int64
}

// LoanResult — состояние займа после операции.
type LoanResult struct {
	Amount      int64 // Выдано или погашено
	Interest    int64 // Проценты, начисленные перед операцией
	LoanBalance int64
	LoanLimit   int64
	Balance     int64
}

// Deposit переводит amount с баланса во вклад.
func (s *Service) Deposit(ctx context.Context, a ledger.Actor, amount int64) (*AccountResult, error) {
	return s.moveSavings(ctx, a, amount, ledger.Delta{Balance: -amount, Deposit: amount}, ledger.KindDeposit, -amount, "вклад")
}

// Withdraw снимает amount со вклада на баланс.
func (s *Service) Withdraw(ctx context.Context, a ledger.Actor, amount int64) (*AccountResult, error) {
	return s.moveSavings(ctx, a, amount, ledger.Delta{Balance: amount, Deposit: -amount}, ledger.KindWithdraw, amount, "снятие со вклада")
}

func (s *Service) moveSavings(ctx context.Context, a ledger.Actor, amount int64, d ledger.Delta, kind ledger.Kind, signed int64, desc string) (*AccountResult, error) {
	if amount <= 0 {
		return nil, common.InvalidArgument("сумма должна быть положительной")
	}
	var res AccountResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}

		var entries []ledger.Entry
		if interest := SettleSavings(p, s.cfg.InterestRateBP, s.cfg.InterestMaxHours, a.Now); interest > 0 {
			res.Interest = interest
			entries = append(entries, ledger.NewEntry(p, ledger.KindInterest, interest, "", "проценты по вкладу", a.Now))
		}
		if err := d.Apply(p); err != nil {
			return err
		}
		entries = append(entries, ledger.NewEntry(p, kind, signed, "", desc, a.Now))

		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		res = AccountResult{Amount: amount, Interest: res.Interest, Balance: p.Balance, Deposit: p.Deposit, DepositLimit: p.DepositLimit}
		return tx.Append(ctx, entries...)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"user_id": a.ID,
		"kind":    kind,
		"amount":  amount,
	}).Debug("Операция со вкладом")
	return &res, nil
}

// ClaimInterest переносит накопленные проценты в баланс.
// Повторный вызов сразу после первого ничего не начисляет и возвращает 0.
func (s *Service) ClaimInterest(ctx context.Context, a ledger.Actor) (*AccountResult, error) {
	var res AccountResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		before := p.LastInterestAt
		interest := FoldSavings(p, s.cfg.InterestRateBP, s.cfg.InterestMaxHours, a.Now)
		res = AccountResult{Interest: interest, Amount: interest, Balance: p.Balance, Deposit: p.Deposit, DepositLimit: p.DepositLimit}
		if interest == 0 && sameTime(before, p.LastInterestAt) {
			return nil
		}
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		if interest == 0 {
			return nil
		}
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindInterest, interest, "", "проценты по вкладу", a.Now))
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// PendingInterest — сколько процентов можно забрать прямо сейчас (без изменений).
func PendingInterest(p *ledger.Player, cfg *config.Config, now time.Time) int64 {
	return SavingsInterest(p.Deposit, cfg.InterestRateBP, p.LastInterestAt, now, cfg.InterestMaxHours)
}

// UpgradeCredit повышает кредитный уровень: списывает цену и увеличивает лимит вклада.
func (s *Service) UpgradeCredit(ctx context.Context, a ledger.Actor) (*CreditResult, error) {
	var res CreditResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		cost := CreditUpgradeCost(s.cfg.CreditUpgradeBaseCost, p.CreditLevel)
		if err := (ledger.Delta{Balance: -cost}).Apply(p); err != nil {
			return err
		}
		p.CreditLevel++
		p.DepositLimit = max(p.DepositLimit, DepositLimitFor(s.cfg.InitialDepositLimit, p.CreditLevel))

		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		res = CreditResult{Cost: cost, NewLevel: p.CreditLevel, DepositLimit: p.DepositLimit, Balance: p.Balance}
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindCreditUpgrade, -cost, "",
			fmt.Sprintf("повышение кредитного уровня до %d", p.CreditLevel), a.Now))
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ApplyLoan выдаёт заём в пределах лимита.
func (s *Service) ApplyLoan(ctx context.Context, a ledger.Actor, amount int64) (*LoanResult, error) {
	if amount <= 0 {
		return nil, common.InvalidArgument("сумма займа должна быть положительной")
	}
	var res LoanResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		entries := s.settleLoan(p, a.Now)
		if p.LoanBalance == 0 {
			// Новый заём: проценты считаются с момента выдачи.
			p.LastLoanInterestAt = common.TimePtr(a.Now)
		}

		limit := LoanLimit(s.cfg.LoanBaseLimit, s.cfg.LoanLevelBonus, p.LoanCreditLevel)
		if p.LoanBalance+amount > limit {
			return common.LimitExceeded("заём", limit, p.LoanBalance+amount)
		}
		if err := (ledger.Delta{Balance: amount, Loan: amount}).Apply(p); err != nil {
			return err
		}
		entries = append(entries, ledger.NewEntry(p, ledger.KindLoan, amount, "", "заём", a.Now))

		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		res = LoanResult{Amount: amount, LoanBalance: p.LoanBalance, LoanLimit: limit, Balance: p.Balance}
		res.Interest = chargedInterest(entries)
		return tx.Append(ctx, entries...)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": a.ID, "amount": amount}).Info("Выдан заём")
	return &res, nil
}

// RepayLoan гасит долг. Сумма ограничивается текущим долгом.
func (s *Service) RepayLoan(ctx context.Context, a ledger.Actor, amount int64) (*LoanResult, error) {
	if amount <= 0 {
		return nil, common.InvalidArgument("сумма погашения должна быть положительной")
	}
	var res LoanResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		entries := s.settleLoan(p, a.Now)
		if p.LoanBalance == 0 {
			return common.InvalidArgument("у вас нет долга")
		}
		pay := min(amount, p.LoanBalance)
		if err := (ledger.Delta{Balance: -pay, Loan: -pay}).Apply(p); err != nil {
			return err
		}
		entries = append(entries, ledger.NewEntry(p, ledger.KindRepay, -pay, "", "погашение займа", a.Now))

		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		res = LoanResult{
			Amount:      pay,
			Interest:    chargedInterest(entries),
			LoanBalance: p.LoanBalance,
			LoanLimit:   LoanLimit(s.cfg.LoanBaseLimit, s.cfg.LoanLevelBonus, p.LoanCreditLevel),
			Balance:     p.Balance,
		}
		return tx.Append(ctx, entries...)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SettleLoanTx начисляет проценты по займу внутри чужой транзакции (например, при чтении профиля).
// Игрок должен быть заблокирован вызывающим. Сохраняет игрока и пишет журнал.
func (s *Service) SettleLoanTx(ctx context.Context, tx *ledger.Tx, p *ledger.Player, now time.Time) (int64, error) {
	before := p.LastLoanInterestAt
	entries := s.settleLoan(p, now)
	if len(entries) == 0 && sameTime(before, p.LastLoanInterestAt) {
		return 0, nil
	}
	if err := tx.Save(ctx, p); err != nil {
		return 0, err
	}
	if err := tx.Append(ctx, entries...); err != nil {
		return 0, err
	}
	return chargedInterest(entries), nil
}

func (s *Service) settleLoan(p *ledger.Player, now time.Time) []ledger.Entry {
	interest := SettleLoan(p, s.cfg.LoanRateBP, now)
	if interest == 0 {
		return nil
	}
	// Баланс не меняется, но для игрока это расход: растёт долг.
	return []ledger.Entry{ledger.NewEntry(p, ledger.KindLoanInterest, -interest, "", "проценты по займу", now)}
}

// chargedInterest — сколько процентов по займу начислено в entries (положительное число).
func chargedInterest(entries []ledger.Entry) int64 {
	var sum int64
	for _, e := range entries {
		if e.Kind == ledger.KindLoanInterest {
			sum -= e.Amount
		}
	}
	return sum
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
