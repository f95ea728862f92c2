package farm

import (
	"time"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/lease"
	"serotonyl.ru/economy-core/internal/outcome"
)

// PlotYield — урожай одного участка.
type PlotYield struct {
	Index    int
	CropType string
	Amount   int64
}

// Targets выбирает участки под посадку: конкретный (plot > 0) или все свободные (plot == 0).
func Targets(plots []*Plot, plot int) ([]*Plot, error) {
	if len(plots) == 0 {
		return nil, common.NotFound("у вас нет участков, сначала купите землю")
	}
	if plot > 0 {
		for _, p := range plots {
			if p.Index != plot {
				continue
			}
			if !p.Empty() {
				return nil, common.Conflict("участок %d уже засажен (%s)", plot, p.CropType)
			}
			return []*Plot{p}, nil
		}
		return nil, common.NotFound("участок %d не найден", plot)
	}

	var free []*Plot
	for _, p := range plots {
		if p.Empty() {
			free = append(free, p)
		}
	}
	if len(free) == 0 {
		return nil, common.Conflict("все участки заняты")
	}
	return free, nil
}

// Sow засаживает участки культурой crop.
func Sow(targets []*Plot, crop config.Crop, now time.Time) {
	for _, p := range targets {
		p.CropType = crop.Name
		p.PlantedAt = common.TimePtr(now)
		p.HarvestAt = lease.Start(lease.KindCrop, now, crop.GrowTime).Until
	}
}

// Reap собирает созревшие участки: у каждого свой независимый случайный урожай.
// Ничего не посажено — NotFound; посажено, но не созрело — Conflict с ожиданием до ближайшего.
func Reap(src outcome.Source, catalog *config.Catalog, plots []*Plot, now time.Time) ([]PlotYield, int64, error) {
	var (
		planted int
		wait    time.Duration
		yields  []PlotYield
		total   int64
	)
	for _, p := range plots {
		if p.Empty() {
			continue
		}
		planted++
		if !p.Ripe(now) {
			if r := p.Growth().Remaining(now); wait == 0 || r < wait {
				wait = r
			}
			continue
		}

		var amount int64
		if crop, ok := catalog.Crop(p.CropType); ok {
			amount = outcome.Yield(src, crop.MinYield, crop.MaxYield)
		}
		yields = append(yields, PlotYield{Index: p.Index, CropType: p.CropType, Amount: amount})
		total += amount
		p.clear()
	}

	switch {
	case planted == 0:
		return nil, 0, common.NotFound("ничего не посажено")
	case len(yields) == 0:
		return nil, 0, &common.Error{
			Kind: common.KindConflict,
			Msg:  "урожай ещё не созрел",
			Wait: time.Duration(common.CeilSeconds(wait)) * time.Second,
		}
	}
	return yields, total, nil
}
