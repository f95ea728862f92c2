// Package bank — вклады, проценты, кредитный уровень и займы.
// accrual.go содержит чистые функции начисления: считаются полные часы от водяного знака,
// умножаются на ставку (в базисных пунктах) и на основную сумму, результат округляется вниз.
package bank

import (
	"time"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/ledger"
)

// SavingsInterest — проценты по вкладу. Часы ограничены maxHours.
func SavingsInterest(deposit, rateBP int64, since *time.Time, now time.Time, maxHours int64) int64 {
	if deposit <= 0 || since == nil {
		return 0
	}
	hours := min(common.WholeHours(*since, now), maxHours)
	return deposit * rateBP * hours / common.BasisPoints
}

// FoldSavings переносит накопленные проценты в баланс и сдвигает водяной знак в now.
// Если не прошло ни одного полного часа — ничего не меняет.
// Пустой вклад просто переставляет водяной знак: новая сумма копит проценты с нуля.
func FoldSavings(p *ledger.Player, rateBP, maxHours int64, now time.Time) int64 {
	if p.LastInterestAt == nil || p.Deposit <= 0 {
		p.LastInterestAt = common.TimePtr(now)
		return 0
	}
	if common.WholeHours(*p.LastInterestAt, now) == 0 {
		return 0
	}
	interest := SavingsInterest(p.Deposit, rateBP, p.LastInterestAt, now, maxHours)
	p.Balance += interest
	p.LastInterestAt = common.TimePtr(now)
	return interest
}

// SettleSavings готовит вклад к изменению суммы: переносит полные часы в баланс
// и всегда ставит водяной знак в now. Остаток неполного часа сгорает,
// иначе новая сумма получила бы проценты за время до её внесения.
func SettleSavings(p *ledger.Player, rateBP, maxHours int64, now time.Time) int64 {
	interest := FoldSavings(p, rateBP, maxHours, now)
	p.LastInterestAt = common.TimePtr(now)
	return interest
}

// LoanInterest — проценты по займу за полные часы, без потолка.
// Если есть долг и прошёл хотя бы час, берётся минимум 1.
func LoanInterest(loan, rateBP int64, since *time.Time, now time.Time) (interest, hours int64) {
	if since == nil {
		return 0, 0
	}
	hours = common.WholeHours(*since, now)
	if hours == 0 || loan <= 0 {
		return 0, hours
	}
	return max(1, loan*rateBP*hours/common.BasisPoints), hours
}

// SettleLoan добавляет проценты к долгу и сдвигает водяной знак ровно на
// начисленные полные часы: дробный остаток часа начислится в следующий раз.
func SettleLoan(p *ledger.Player, rateBP int64, now time.Time) int64 {
	if p.LastLoanInterestAt == nil {
		p.LastLoanInterestAt = common.TimePtr(now)
		return 0
	}
	interest, hours := LoanInterest(p.LoanBalance, rateBP, p.LastLoanInterestAt, now)
	if hours == 0 {
		return 0
	}
	p.LoanBalance += interest
	p.LastLoanInterestAt = common.TimePtr(p.LastLoanInterestAt.Add(time.Duration(hours) * time.Hour))
	return interest
}

// CreditUpgradeCost — цена перехода с уровня level на следующий: base × 2^(level−1).
func CreditUpgradeCost(base int64, level int) int64 {
	return base * common.Pow2(level-1)
}

// DepositLimitFor — лимит вклада на уровне level: initial × 2^(level−1).
func DepositLimitFor(initial int64, level int) int64 {
	return initial * common.Pow2(level-1)
}

// LoanLimit — лимит займа: base + (level−1) × bonus.
func LoanLimit(base, bonus int64, level int) int64 {
	return base + int64(max(level, 1)-1)*bonus
}
