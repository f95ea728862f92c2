package ledger

import (
	"serotonyl.ru/economy-core/internal/common"
)

// Validate проверяет инварианты строки после изменения.
func Validate(p *Player) error {
	switch {
	case p.Balance < 0:
		return &common.Error{Kind: common.KindInsufficientFunds, Msg: "баланс не может стать отрицательным", Have: p.Balance}
	case p.LoanBalance < 0:
		return &common.Error{Kind: common.KindInsufficientFunds, Msg: "долг не может стать отрицательным", Have: p.LoanBalance}
	case p.Deposit < 0:
		return &common.Error{Kind: common.KindInsufficientFunds, Msg: "вклад не может стать отрицательным", Have: p.Deposit}
	case p.Deposit > p.DepositLimit:
		return common.LimitExceeded("вклад", p.DepositLimit, p.Deposit)
	case p.CreditLevel < 1 || p.LoanCreditLevel < 1:
		return common.InvalidArgument("уровень кредита должен быть ≥ 1")
	case p.Worth < 0:
		return common.InvalidArgument("цена игрока не может быть отрицательной")
	case p.OwnerID != nil && *p.OwnerID == p.UserID:
		return common.Conflict("игрок не может владеть самим собой")
	}
	return nil
}

// Apply применяет дельту к игроку. При нарушении инварианта игрок не меняется,
// а ошибка несёт сколько нужно и сколько есть.
func (d Delta) Apply(p *Player) error {
	if p.Balance+d.Balance < 0 {
		return common.InsufficientFunds("баланс", -d.Balance, p.Balance)
	}
	if p.Deposit+d.Deposit < 0 {
		return common.InsufficientFunds("вклад", -d.Deposit, p.Deposit)
	}
	if p.LoanBalance+d.Loan < 0 {
		return common.InsufficientFunds("долг", -d.Loan, p.LoanBalance)
	}
	next := *p
	next.Balance += d.Balance
	next.Deposit += d.Deposit
	next.LoanBalance += d.Loan
	next.Worth += d.Worth
	if err := Validate(&next); err != nil {
		return err
	}
	*p = next
	return nil
}

// ApplyAll применяет дельты к набору игроков по принципу «всё или ничего».
func ApplyAll(players map[string]*Player, deltas map[string]Delta) error {
	next := make(map[string]Player, len(deltas))
	for id, d := range deltas {
		p, ok := players[id]
		if !ok {
			return common.NotFound("игрок %s не найден", id)
		}
		cp := *p
		if err := d.Apply(&cp); err != nil {
			return err
		}
		next[id] = cp
	}
	for id, cp := range next {
		*players[id] = cp
	}
	return nil
}
