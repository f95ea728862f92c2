package work

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/cooldown"
	"serotonyl.ru/economy-core/internal/ledger"
	"serotonyl.ru/economy-core/internal/outcome"
)

// Service выполняет трудовые и силовые действия.
type Service struct {
	store     *ledger.Store
	cfg       *config.Config
	cooldowns cooldown.Durations
	src       outcome.Source
}

// NewService создаёт сервис.
func NewService(store *ledger.Store, cfg *config.Config, cooldowns cooldown.Durations, src outcome.Source) *Service {
	return &Service{store: store, cfg: cfg, cooldowns: cooldowns, src: src}
}

// WorkResult — итог смены.
type WorkResult struct {
	Earnings
	OwnerID        string
	Balance        int64
	JailWorkIncome int64 // Только для работы в тюрьме
}

// RobResult — итог ограбления.
type RobResult struct {
	outcome.RobberyOutcome
	TargetID      string
	Balance       int64
	TargetBalance int64
	JailUntil     *time.Time
}

// TransferResult — итог перевода.
type TransferResult struct {
	Amount          int64
	Fee             int64
	Balance         int64
	ReceiverBalance int64
}

// Work — обычная смена. В тюрьме недоступна.
func (s *Service) Work(ctx context.Context, a ledger.Actor) (*WorkResult, error) {
	return s.shift(ctx, a, false)
}

// JailWork — смена в тюрьме. Доступна только заключённым, заработок копится в jail_work_income.
func (s *Service) JailWork(ctx context.Context, a ledger.Actor) (*WorkResult, error) {
	return s.shift(ctx, a, true)
}

func (s *Service) shift(ctx context.Context, a ledger.Actor, inJail bool) (*WorkResult, error) {
	current, err := s.store.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	ids := []string{a.ID}
	if current.Owned() {
		ids = append(ids, *current.OwnerID)
	}

	kind := ledger.KindWork
	if inJail {
		kind = ledger.KindJailWork
	}

	var res WorkResult
	err = s.store.InTx(ctx, func(tx *ledger.Tx) error {
		locked, err := tx.Lock(ctx, ids...)
		if err != nil {
			return err
		}
		p := locked[a.ID]

		jail := p.Jail()
		switch {
		case !inJail && jail.Active(a.Now):
			return common.Cooldown("вы в тюрьме", jail.Remaining(a.Now))
		case inJail && !jail.Active(a.Now):
			return common.Conflict("вы не в тюрьме")
		}
		if err := s.cooldowns.Gate(p, cooldown.Work, a.Now, a.Admin); err != nil {
			return err
		}

		var owner *ledger.Player
		if p.Owned() {
			var ok bool
			if owner, ok = locked[*p.OwnerID]; !ok {
				return common.Conflict("владелец изменился, повторите попытку")
			}
		}

		earn := Earn(p.Worth, s.cfg.WorkRateBP, s.cfg.OwnerShareBP, owner != nil)
		players := map[string]*ledger.Player{p.UserID: p}
		deltas := map[string]ledger.Delta{p.UserID: {Balance: earn.Net}}
		if owner != nil {
			players[owner.UserID] = owner
			deltas[owner.UserID] = ledger.Delta{Balance: earn.OwnerCut}
			res.OwnerID = owner.UserID
		}
		if err := ledger.ApplyAll(players, deltas); err != nil {
			return err
		}
		if inJail {
			p.JailWorkIncome += earn.Net
		}

		toSave := []*ledger.Player{p}
		entries := []ledger.Entry{ledger.NewEntry(p, kind, earn.Net, res.OwnerID, "зарплата", a.Now)}
		if owner != nil {
			toSave = append(toSave, owner)
			if earn.OwnerCut > 0 {
				entries = append(entries, ledger.NewEntry(owner, kind, earn.OwnerCut, p.UserID,
					fmt.Sprintf("доля с работы %s", p.Nickname), a.Now))
			}
		}
		if err := tx.SaveAll(ctx, toSave...); err != nil {
			return err
		}

		res.Earnings = earn
		res.Balance = p.Balance
		res.JailWorkIncome = p.JailWorkIncome
		return tx.Append(ctx, entries...)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"user_id":   a.ID,
		"kind":      kind,
		"income":    res.Income,
		"owner_cut": res.OwnerCut,
	}).Debug("Смена отработана")
	return &res, nil
}

// Rob — ограбление цели выбранной стратегией.
// Перезарядка ставится при любом исходе броска; ошибки до броска ничего не меняют.
func (s *Service) Rob(ctx context.Context, a ledger.Actor, targetID, strategy string) (*RobResult, error) {
	if a.ID == targetID {
		return nil, common.InvalidArgument("нельзя ограбить самого себя")
	}

	var res RobResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		locked, err := tx.Lock(ctx, a.ID, targetID)
		if err != nil {
			return err
		}
		robber, target := locked[a.ID], locked[targetID]

		if jail := robber.Jail(); jail.Active(a.Now) {
			return common.Cooldown("вы в тюрьме", jail.Remaining(a.Now))
		}
		if err := s.cooldowns.Gate(robber, cooldown.Rob, a.Now, a.Admin); err != nil {
			return err
		}

		out, err := outcome.ResolveRobbery(s.src, outcome.RobberyInput{
			RobberID:       robber.UserID,
			TargetID:       target.UserID,
			RobberBalance:  robber.Balance,
			TargetBalance:  target.Balance,
			GuardRemaining: target.Bodyguard().Remaining(a.Now),
			Strategy:       outcome.ParseStrategy(strategy),
			PenaltyBP:      s.cfg.RobPenaltyBP,
		})
		if err != nil {
			return err
		}
		if err := ApplyRobbery(robber, target, out, s.cfg.JailDuration, a.Now); err != nil {
			return err
		}
		if err := tx.SaveAll(ctx, robber, target); err != nil {
			return err
		}

		res = RobResult{
			RobberyOutcome: out,
			TargetID:       targetID,
			Balance:        robber.Balance,
			TargetBalance:  target.Balance,
			JailUntil:      robber.JailUntil,
		}

		switch {
		case out.Success:
			return tx.Append(ctx,
				ledger.NewEntry(robber, ledger.KindRob, out.Amount, targetID,
					fmt.Sprintf("ограбление %s", target.Nickname), a.Now),
				ledger.NewEntry(target, ledger.KindRob, -out.Amount, a.ID,
					fmt.Sprintf("ограблен игроком %s", robber.Nickname), a.Now),
			)
		case out.Penalty > 0:
			return tx.Append(ctx, ledger.NewEntry(robber, ledger.KindRob, -out.Penalty, targetID,
				"штраф за неудачное ограбление", a.Now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"robber":   a.ID,
		"target":   targetID,
		"strategy": res.Strategy,
		"success":  res.Success,
		"amount":   res.Amount,
		"penalty":  res.Penalty,
	}).Info("Ограбление")
	return &res, nil
}

// Transfer переводит amount другому игроку. Комиссия сверху сгорает.
func (s *Service) Transfer(ctx context.Context, a ledger.Actor, toID string, amount int64) (*TransferResult, error) {
	if amount <= 0 {
		return nil, common.InvalidArgument("сумма перевода должна быть положительной")
	}
	if a.ID == toID {
		return nil, common.InvalidArgument("нельзя перевести самому себе")
	}

	var res TransferResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		locked, err := tx.Lock(ctx, a.ID, toID)
		if err != nil {
			return err
		}
		sender, receiver := locked[a.ID], locked[toID]
		if err := s.cooldowns.Gate(sender, cooldown.Transfer, a.Now, a.Admin); err != nil {
			return err
		}

		fee := TransferFee(amount, s.cfg.TransferFeeBP, a.Admin || a.VIP)
		if err := ledger.ApplyAll(locked, map[string]ledger.Delta{
			sender.UserID:   {Balance: -(amount + fee)},
			receiver.UserID: {Balance: amount},
		}); err != nil {
			return err
		}
		if err := tx.SaveAll(ctx, sender, receiver); err != nil {
			return err
		}

		res = TransferResult{Amount: amount, Fee: fee, Balance: sender.Balance, ReceiverBalance: receiver.Balance}
		desc := fmt.Sprintf("перевод игроку %s", receiver.Nickname)
		if fee > 0 {
			desc = fmt.Sprintf("%s (комиссия %d)", desc, fee)
		}
		return tx.Append(ctx,
			ledger.NewEntry(sender, ledger.KindTransfer, -(amount + fee), toID, desc, a.Now),
			ledger.NewEntry(receiver, ledger.KindTransfer, amount, a.ID,
				fmt.Sprintf("перевод от %s", sender.Nickname), a.Now),
		)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"from":   a.ID,
		"to":     toID,
		"amount": amount,
		"fee":    res.Fee,
	}).Info("Перевод")
	return &res, nil
}
