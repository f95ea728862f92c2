// Package farm — участки, посадка и сбор урожая.
// Созревание культуры — та же аренда, что VIP или тюрьма: урожай готов, когда аренда истекла.
package farm

import (
	"time"

	"serotonyl.ru/economy-core/internal/lease"
)

// Plot — строка таблицы farm_lands.
type Plot struct {
	UserID    string     `db:"user_id"`
	Index     int        `db:"plot_index"` // С единицы
	CropType  string     `db:"crop_type"`  // Пусто — участок свободен
	PlantedAt *time.Time `db:"planted_at"`
	HarvestAt *time.Time `db:"harvest_at"`
}

// Empty — на участке ничего не растёт.
func (p *Plot) Empty() bool { return p.CropType == "" }

// Growth — аренда созревания.
func (p *Plot) Growth() lease.Lease { return lease.Of(lease.KindCrop, p.HarvestAt) }

// Ripe — посажено и уже созрело.
func (p *Plot) Ripe(now time.Time) bool {
	return !p.Empty() && p.HarvestAt != nil && !p.Growth().Active(now)
}

func (p *Plot) clear() {
	p.CropType = ""
	p.PlantedAt = nil
	p.HarvestAt = nil
}
