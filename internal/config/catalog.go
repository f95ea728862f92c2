// Package config — catalog.go загружает статические каталоги: культуры, телохранители,
// цены участков и типы VIP-карт. Движок читает их как обычные данные.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// VIPCardHour — тип карты с произвольным числом часов.
const VIPCardHour = "hour"

// Catalog — все статические таблицы игры.
type Catalog struct {
	Crops      []Crop                   `yaml:"crops"`
	Bodyguards []Bodyguard              `yaml:"bodyguards"`
	Land       Land                     `yaml:"land"`
	VIPCards   map[string]time.Duration `yaml:"vip_cards"`
}

// Crop — культура: цена семян, время роста и диапазон урожая.
type Crop struct {
	Name      string        `yaml:"name"`
	SeedPrice int64         `yaml:"seed_price"`
	GrowTime  time.Duration `yaml:"grow_time"`
	MinYield  int64         `yaml:"min_yield"`
	MaxYield  int64         `yaml:"max_yield"`
}

// Bodyguard — телохранитель: цена и длительность охраны.
type Bodyguard struct {
	Name     string        `yaml:"name"`
	Price    int64         `yaml:"price"`
	Duration time.Duration `yaml:"duration"`
}

// Land — лестница цен на участки.
type Land struct {
	MaxPlots     int     `yaml:"max_plots"`
	Prices       []int64 `yaml:"prices"`
	DefaultPrice int64   `yaml:"default_price"`
}

// LoadCatalog читает каталог из файла, а при пустом пути — встроенный.
func LoadCatalog(path string) (*Catalog, error) {
	raw := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать каталог %s: %w", path, err)
		}
		raw = b
	}
	return ParseCatalog(raw)
}

// ParseCatalog разбирает YAML-каталог.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("catalog.yaml: %w", err)
	}
	return &c, nil
}

// Validate проверяет согласованность каталога.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool)
	for _, crop := range c.Crops {
		if crop.Name == "" || seen["crop:"+crop.Name] {
			return fmt.Errorf("культура %q пустая или повторяется", crop.Name)
		}
		seen["crop:"+crop.Name] = true
		if crop.SeedPrice < 0 || crop.GrowTime <= 0 || crop.MinYield < 0 || crop.MaxYield < crop.MinYield {
			return fmt.Errorf("некорректные параметры культуры %q", crop.Name)
		}
	}
	for _, bg := range c.Bodyguards {
		if bg.Name == "" || seen["bg:"+bg.Name] {
			return fmt.Errorf("телохранитель %q пустой или повторяется", bg.Name)
		}
		seen["bg:"+bg.Name] = true
		if bg.Price < 0 || bg.Duration <= 0 {
			return fmt.Errorf("некорректные параметры телохранителя %q", bg.Name)
		}
	}
	if c.Land.MaxPlots <= 0 || c.Land.DefaultPrice < 0 {
		return fmt.Errorf("некорректные параметры участков")
	}
	for name, d := range c.VIPCards {
		if name == VIPCardHour || d <= 0 {
			return fmt.Errorf("некорректный тип VIP-карты %q", name)
		}
	}
	return nil
}

// Crop ищет культуру по имени.
func (c *Catalog) Crop(name string) (Crop, bool) {
	for _, crop := range c.Crops {
		if crop.Name == name {
			return crop, true
		}
	}
	return Crop{}, false
}

// Bodyguard ищет телохранителя по имени.
func (c *Catalog) Bodyguard(name string) (Bodyguard, bool) {
	for _, bg := range c.Bodyguards {
		if bg.Name == name {
			return bg, true
		}
	}
	return Bodyguard{}, false
}

// LandPrice возвращает цену участка с номером plot (с единицы).
func (c *Catalog) LandPrice(plot int) int64 {
	if plot >= 1 && plot <= len(c.Land.Prices) {
		return c.Land.Prices[plot-1]
	}
	return c.Land.DefaultPrice
}

// VIPDuration возвращает длительность карты. Для типа "hour" длительность
// задаётся числом часов, оно должно быть положительным.
func (c *Catalog) VIPDuration(cardType string, hours int) (time.Duration, bool) {
	if cardType == VIPCardHour {
		if hours <= 0 {
			return 0, false
		}
		return time.Duration(hours) * time.Hour, true
	}
	d, ok := c.VIPCards[cardType]
	return d, ok
}
