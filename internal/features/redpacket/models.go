// Package redpacket — красные конверты: общий пул денег, который разбирают по случайным долям.
package redpacket

import "time"

// Packet — строка таблицы red_packets.
type Packet struct {
	ID            string    `db:"packet_id"`
	SenderID      string    `db:"sender_id"`
	SenderName    string    `db:"sender_name"`
	TotalAmount   int64     `db:"total_amount"`
	TotalCount    int       `db:"total_count"`
	Remaining     int       `db:"remaining"`      // Сколько долей ещё не забрано
	ClaimedAmount int64     `db:"claimed_amount"` // Сколько денег уже выдано
	Scope         string    `db:"scope_key"`      // Чат, в котором конверт отправлен
	CreatedAt     time.Time `db:"created_at"`
	ExpiresAt     time.Time `db:"expires_at"`
	Refunded      bool      `db:"refunded"`
}

// Expired — истёк ли срок конверта.
func (p *Packet) Expired(now time.Time) bool { return !now.Before(p.ExpiresAt) }

// Exhausted — все доли разобраны.
func (p *Packet) Exhausted() bool { return p.Remaining == 0 }

// Unclaimed — деньги, которые ещё лежат в пуле.
func (p *Packet) Unclaimed() int64 { return p.TotalAmount - p.ClaimedAmount }

// Grab — одна выданная доля.
type Grab struct {
	PacketID  string    `db:"packet_id"`
	UserID    string    `db:"user_id"`
	UserName  string    `db:"user_name"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}
