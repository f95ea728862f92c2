// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: целочисленная арифметика в базисных пунктах, работа с временем.
package common

import (
	"fmt"
	"math"
	"math/bits"
	"time"

	log "github.com/sirupsen/logrus"
)

// BasisPoints — знаменатель для множителей в базисных пунктах (10000 = 1.0).
const BasisPoints int64 = 10000

// MulBP умножает v на множитель в базисных пунктах и округляет вниз.
// Произведение считается в 128 битах; если частное не помещается в int64,
// результат насыщается до math.MaxInt64 (math.MinInt64 для отрицательных).
//
// Примеры:
//
//	MulBP(500, 11000)  → 550   (×1.10)
//	MulBP(1000, 12000) → 1200  (×1.20)
//	MulBP(999, 1000)   → 99    (×0.10)
func MulBP(v, bp int64) int64 {
	q, ok := mulDivBP(v, bp, false)
	if !ok {
		return saturate(v, bp)
	}
	return q
}

// MulBPCeil — как MulBP, но с округлением вверх (для комиссий).
func MulBPCeil(v, bp int64) int64 {
	q, ok := mulDivBP(v, bp, true)
	if !ok {
		return saturate(v, bp)
	}
	return q
}

// MulBPChecked — как MulBP, но переполнение возвращает LimitExceeded.
// Используется там, где результат списывается с баланса: цена не должна «перевернуться».
func MulBPChecked(what string, v, bp int64) (int64, error) {
	q, ok := mulDivBP(v, bp, false)
	if !ok {
		return 0, &Error{
			Kind:  KindLimitExceeded,
			Msg:   fmt.Sprintf("превышен лимит (%s): сумма не помещается в int64", what),
			Limit: math.MaxInt64,
		}
	}
	return q, nil
}

// mulDivBP считает v×bp/BasisPoints без переполнения промежуточного произведения.
// Частное усекается к нулю; с ceil положительный остаток округляется вверх.
func mulDivBP(v, bp int64, ceil bool) (int64, bool) {
	neg := (v < 0) != (bp < 0)
	hi, lo := bits.Mul64(absU64(v), absU64(bp))
	if hi >= uint64(BasisPoints) {
		return 0, false
	}
	quo, rem := bits.Div64(hi, lo, uint64(BasisPoints))
	if quo > math.MaxInt64 {
		return 0, false
	}
	if ceil && rem != 0 && !neg {
		quo++
		if quo > math.MaxInt64 {
			return 0, false
		}
	}
	if neg {
		return -int64(quo), true
	}
	return int64(quo), true
}

func saturate(v, bp int64) int64 {
	if (v < 0) != (bp < 0) {
		return math.MinInt64
	}
	return math.MaxInt64
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// WholeHours возвращает число полных часов между from и to.
// Отрицательный интервал (часы «назад») считается нулём.
func WholeHours(from, to time.Time) int64 {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Hour)
}

// CeilSeconds округляет длительность вверх до целых секунд.
func CeilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// Pow2 возвращает 2^n для n ≥ 0.
func Pow2(n int) int64 {
	if n <= 0 {
		return 1
	}
	return int64(1) << uint(n)
}

// LoadLocation загружает часовой пояс. Если tzdata недоступна,
// для Europe/Moscow используется фиксированный UTC+3, иначе UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	log.WithError(err).Warnf("Не удалось загрузить часовой пояс %s", name)
	if name == "Europe/Moscow" {
		return time.FixedZone("MSK", 3*60*60)
	}
	return time.UTC
}

// TimePtr возвращает указатель на копию t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
