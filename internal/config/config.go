// Package config загружает конфигурацию движка из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// а каталоги (культуры, телохранители, участки, VIP-карты) читаются из YAML.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
// Денежные множители заданы в базисных пунктах (10000 = 1.0), чтобы считать в целых числах.
type Config struct {
	// --- Database ---
	// Если задан DATABASE_URL, он важнее отдельных DB_* переменных.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"postgres"`
	DBPort      int    `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"economy"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"economy"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"5"`
	// Сколько раз повторять транзакцию на известных гоночных путях (захват конверта, регистрация)
	DBTxRetries int `envconfig:"DB_TX_RETRIES" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Admin ---
	AdminIDsRaw string   `envconfig:"ADMIN_IDS"`
	AdminIDs    []string `envconfig:"-"` // заполним вручную
	// Argon2id-хеш пароля для сброса всех данных. Пустой — сброс без пароля запрещён.
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`
	// Админы считаются вечными VIP
	AdminPermanentVIP bool `envconfig:"ADMIN_PERMANENT_VIP" default:"true"`

	// --- Player ---
	InitialBalance      int64 `envconfig:"INITIAL_BALANCE" default:"1000"`
	InitialWorth        int64 `envconfig:"INITIAL_WORTH" default:"100"`
	InitialDepositLimit int64 `envconfig:"INITIAL_DEPOSIT_LIMIT" default:"10000"`

	// --- Bank ---
	InterestRateBP        int64 `envconfig:"INTEREST_RATE_BP" default:"10"`  // В час
	InterestMaxHours      int64 `envconfig:"INTEREST_MAX_HOURS" default:"24"` // Потолок накопления
	CreditUpgradeBaseCost int64 `envconfig:"CREDIT_UPGRADE_BASE_COST" default:"1000"`
	LoanRateBP            int64 `envconfig:"LOAN_RATE_BP" default:"50"` // В час
	LoanBaseLimit         int64 `envconfig:"LOAN_BASE_LIMIT" default:"5000"`
	LoanLevelBonus        int64 `envconfig:"LOAN_LEVEL_BONUS" default:"5000"`

	// --- Work & transfer ---
	WorkRateBP    int64         `envconfig:"WORK_RATE_BP" default:"1000"`
	OwnerShareBP  int64         `envconfig:"OWNER_SHARE_BP" default:"3000"`
	TransferFeeBP int64         `envconfig:"TRANSFER_FEE_BP" default:"100"`
	RobPenaltyBP  int64         `envconfig:"ROB_PENALTY_BP" default:"1000"`
	JailDuration  time.Duration `envconfig:"JAIL_DURATION" default:"10m"`

	// --- Market ---
	BuyWorthBP           int64 `envconfig:"BUY_WORTH_BP" default:"11000"`
	RansomPriceBP        int64 `envconfig:"RANSOM_PRICE_BP" default:"12000"`
	SnatchPriceBP        int64 `envconfig:"SNATCH_PRICE_BP" default:"20000"`
	SnatchCompensationBP int64 `envconfig:"SNATCH_COMPENSATION_BP" default:"15000"`
	SnatchWorthBP        int64 `envconfig:"SNATCH_WORTH_BP" default:"12000"`
	MarketListLimit      int   `envconfig:"MARKET_LIST_LIMIT" default:"20"`

	// --- Red packets ---
	RedPacketFeeBP int64         `envconfig:"RED_PACKET_FEE_BP" default:"500"`
	RedPacketTTL   time.Duration `envconfig:"RED_PACKET_TTL" default:"24h"`

	// --- Cooldowns ---
	CooldownWork     time.Duration `envconfig:"COOLDOWN_WORK" default:"30m"`
	CooldownRob      time.Duration `envconfig:"COOLDOWN_ROB" default:"1h"`
	CooldownTransfer time.Duration `envconfig:"COOLDOWN_TRANSFER" default:"1m"`
	CooldownBuy      time.Duration `envconfig:"COOLDOWN_BUY" default:"5m"`
	CooldownPlant    time.Duration `envconfig:"COOLDOWN_PLANT" default:"1m"`
	CooldownHarvest  time.Duration `envconfig:"COOLDOWN_HARVEST" default:"1m"`

	// --- Housekeeping ---
	TransactionRetentionDays int `envconfig:"TRANSACTION_RETENTION_DAYS" default:"30"`
	VIPCardRetentionDays     int `envconfig:"VIP_CARD_RETENTION_DAYS" default:"30"`

	// --- Catalog ---
	// Путь к YAML-каталогу. Пустой — используется встроенный.
	CatalogPath string   `envconfig:"CATALOG_PATH"`
	Catalog     *Catalog `envconfig:"-"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdminID проверяет, входит ли id в список ADMIN_IDS.
func (c *Config) IsAdminID(id string) bool {
	for _, a := range c.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// Validate проверяет согласованность значений после загрузки.
func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.DBTxRetries <= 0 {
		return fmt.Errorf("DB_TX_RETRIES должен быть > 0")
	}
	if c.InitialBalance < 0 || c.InitialWorth <= 0 || c.InitialDepositLimit < 0 {
		return fmt.Errorf("некорректные начальные значения игрока")
	}
	if c.InterestMaxHours <= 0 {
		return fmt.Errorf("INTEREST_MAX_HOURS должен быть > 0")
	}
	bps := map[string]int64{
		"INTEREST_RATE_BP":       c.InterestRateBP,
		"LOAN_RATE_BP":           c.LoanRateBP,
		"WORK_RATE_BP":           c.WorkRateBP,
		"OWNER_SHARE_BP":         c.OwnerShareBP,
		"TRANSFER_FEE_BP":        c.TransferFeeBP,
		"ROB_PENALTY_BP":         c.RobPenaltyBP,
		"BUY_WORTH_BP":           c.BuyWorthBP,
		"RANSOM_PRICE_BP":        c.RansomPriceBP,
		"SNATCH_PRICE_BP":        c.SnatchPriceBP,
		"SNATCH_COMPENSATION_BP": c.SnatchCompensationBP,
		"SNATCH_WORTH_BP":        c.SnatchWorthBP,
		"RED_PACKET_FEE_BP":      c.RedPacketFeeBP,
	}
	for name, v := range bps {
		if v < 0 {
			return fmt.Errorf("%s не может быть отрицательным", name)
		}
	}
	if c.OwnerShareBP > 10000 || c.RobPenaltyBP > 10000 {
		return fmt.Errorf("OWNER_SHARE_BP и ROB_PENALTY_BP не могут превышать 10000")
	}
	if c.MarketListLimit <= 0 {
		return fmt.Errorf("MARKET_LIST_LIMIT должен быть > 0")
	}
	if c.RedPacketTTL <= 0 || c.JailDuration <= 0 {
		return fmt.Errorf("RED_PACKET_TTL и JAIL_DURATION должны быть > 0")
	}
	if c.TransactionRetentionDays <= 0 || c.VIPCardRetentionDays <= 0 {
		return fmt.Errorf("сроки хранения должны быть > 0")
	}
	if c.Catalog == nil {
		return fmt.Errorf("каталог не загружен")
	}
	return c.Catalog.Validate()
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.AdminIDs = parseCSV(cfg.AdminIDsRaw)

	catalog, err := LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	cfg.Catalog = catalog

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
