package outcome

import (
	"serotonyl.ru/economy-core/internal/common"
)

// NextShare считает долю очередного получателя красного конверта.
//
// Последняя доля получает ровно остаток, поэтому сумма всех долей равна total.
// Иначе доля случайна в [1, min(2×floor(остаток/доли), остаток − (доли−1))]:
// каждому следующему гарантированно останется хотя бы 1.
func NextShare(src Source, total, granted int64, remaining int) (int64, error) {
	if remaining <= 0 {
		return 0, common.Conflict("красный конверт уже разобран")
	}
	rest := total - granted
	if rest < int64(remaining) {
		return 0, common.Conflict("остаток конверта меньше числа долей (%d < %d)", rest, remaining)
	}
	if remaining == 1 {
		return rest, nil
	}

	avg := rest / int64(remaining)
	upper := min(2*avg, rest-int64(remaining-1))
	if upper < 1 {
		upper = 1
	}
	return 1 + src.Int64N(upper), nil
}

// Share — доля одного получателя.
type Share struct {
	UserID string
	Amount int64
}

// Luckiest возвращает получателя с наибольшей долей; при равенстве — самого раннего.
func Luckiest(shares []Share) (Share, bool) {
	if len(shares) == 0 {
		return Share{}, false
	}
	best := shares[0]
	for _, s := range shares[1:] {
		if s.Amount > best.Amount {
			best = s
		}
	}
	return best, true
}
