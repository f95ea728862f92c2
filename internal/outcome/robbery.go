package outcome

import (
	"time"

	"serotonyl.ru/economy-core/internal/common"
)

// Strategy — стратегия ограбления.
type Strategy string

const (
	Conservative Strategy = "conservative"
	Balanced     Strategy = "balanced"
	Aggressive   Strategy = "aggressive"
)

// StrategyParams — вероятность успеха и доля добычи в базисных пунктах.
type StrategyParams struct {
	SuccessBP int64
	YieldBP   int64
}

var strategies = map[Strategy]StrategyParams{
	Conservative: {SuccessBP: 8000, YieldBP: 2000},
	Balanced:     {SuccessBP: 5000, YieldBP: 3000},
	Aggressive:   {SuccessBP: 3000, YieldBP: 5000},
}

// ParseStrategy возвращает стратегию по имени; неизвестная или пустая — Balanced.
func ParseStrategy(name string) Strategy {
	s := Strategy(name)
	if _, ok := strategies[s]; ok {
		return s
	}
	return Balanced
}

// Params отдаёт параметры стратегии.
func (s Strategy) Params() StrategyParams {
	if p, ok := strategies[s]; ok {
		return p
	}
	return strategies[Balanced]
}

// RobberyInput — всё, что нужно для разрешения ограбления.
type RobberyInput struct {
	RobberID       string
	TargetID       string
	RobberBalance  int64
	TargetBalance  int64
	GuardRemaining time.Duration // > 0 — у цели активный телохранитель
	Strategy       Strategy
	PenaltyBP      int64 // Доля баланса грабителя, сгорающая при провале
}

// RobberyOutcome — итог ограбления.
type RobberyOutcome struct {
	Strategy Strategy
	Success  bool
	Amount   int64 // Добыча при успехе
	Penalty  int64 // Штраф при провале
}

// ResolveRobbery проверяет предусловия и бросает кубик.
// Телохранитель цели отменяет ограбление до броска, при любой стратегии.
func ResolveRobbery(src Source, in RobberyInput) (RobberyOutcome, error) {
	if in.RobberID == in.TargetID {
		return RobberyOutcome{}, common.InvalidArgument("нельзя ограбить самого себя")
	}
	if in.GuardRemaining > 0 {
		return RobberyOutcome{}, &common.Error{
			Kind: common.KindConflict,
			Msg:  "у цели есть телохранитель",
			Wait: in.GuardRemaining,
		}
	}

	params := in.Strategy.Params()
	out := RobberyOutcome{Strategy: ParseStrategy(string(in.Strategy))}

	if chance(src, params.SuccessBP) {
		amount := min(common.MulBP(in.TargetBalance, params.YieldBP), in.TargetBalance)
		if amount <= 0 {
			return RobberyOutcome{}, &common.Error{
				Kind: common.KindInsufficientFunds,
				Msg:  "у цели нечего забрать",
				Need: 1,
				Have: in.TargetBalance,
			}
		}
		out.Success = true
		out.Amount = amount
		return out, nil
	}

	out.Penalty = max(0, min(common.MulBP(in.RobberBalance, in.PenaltyBP), in.RobberBalance))
	return out, nil
}
