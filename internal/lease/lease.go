// Package lease описывает временную аренду: эффект, активный пока now < Until.
// Один тип используется для VIP, тюрьмы, телохранителя и созревания урожая.
package lease

import "time"

// Kind — вид аренды.
type Kind string

const (
	KindVIP       Kind = "vip"
	KindJail      Kind = "jail"
	KindBodyguard Kind = "bodyguard"
	KindCrop      Kind = "crop"
)

// Lease — вид аренды и момент её окончания (nil — аренды нет).
type Lease struct {
	Kind  Kind
	Until *time.Time
}

// Of собирает аренду из nullable-колонки.
func Of(kind Kind, until *time.Time) Lease {
	return Lease{Kind: kind, Until: until}
}

// Start начинает аренду длительностью d с момента now.
func Start(kind Kind, now time.Time, d time.Duration) Lease {
	until := now.Add(d)
	return Lease{Kind: kind, Until: &until}
}

// Active — эффект действует, пока now строго меньше Until.
func (l Lease) Active(now time.Time) bool {
	return l.Until != nil && now.Before(*l.Until)
}

// Remaining — сколько осталось до окончания (0, если аренда не активна).
func (l Lease) Remaining(now time.Time) time.Duration {
	if !l.Active(now) {
		return 0
	}
	return l.Until.Sub(now)
}

// Extend продлевает аренду на d: от текущего окончания, если аренда ещё активна,
// иначе от now.
func (l Lease) Extend(now time.Time, d time.Duration) Lease {
	from := now
	if l.Active(now) {
		from = *l.Until
	}
	until := from.Add(d)
	return Lease{Kind: l.Kind, Until: &until}
}
