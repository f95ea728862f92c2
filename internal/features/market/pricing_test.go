package market

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/ledger"
)

var now = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

var testPricing = Pricing{
	BuyWorthBP:           11000,
	RansomPriceBP:        12000,
	SnatchPriceBP:        20000,
	SnatchCompensationBP: 15000,
	SnatchWorthBP:        12000,
}

func player(id string, balance, worth int64) *ledger.Player {
	return &ledger.Player{
		UserID:          id,
		Nickname:        id,
		Balance:         balance,
		Worth:           worth,
		CreditLevel:     1,
		LoanCreditLevel: 1,
		DepositLimit:    10000,
	}
}

func owned(p *ledger.Player, ownerID string) *ledger.Player {
	p.OwnerID = &ownerID
	p.OwnedAt = common.TimePtr(now.Add(-time.Hour))
	return p
}

func TestBuyFreePlayer(t *testing.T) {
	a := player("A", 1000, 100)
	b := player("B", 0, 500)

	deal, err := testPricing.Buy(a, b, false, now)
	require.NoError(t, err)

	assert.Equal(t, int64(500), deal.Charged)
	assert.Equal(t, int64(500), a.Balance)
	assert.True(t, b.OwnedBy("A"))
	assert.Equal(t, now, *b.OwnedAt)
	assert.Equal(t, int64(550), b.Worth)
	assert.Equal(t, int64(550), deal.NewWorth)
}

func TestBuyRejections(t *testing.T) {
	a := player("A", 1000, 100)

	_, err := testPricing.Buy(a, a, false, now)
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))

	taken := owned(player("B", 0, 100), "C")
	_, err = testPricing.Buy(a, taken, false, now)
	assert.True(t, errors.Is(err, common.ErrConflict))
	assert.True(t, taken.OwnedBy("C"), "владелец не меняется")

	pricey := player("D", 0, 5000)
	_, err = testPricing.Buy(a, pricey, false, now)
	var e *common.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, common.KindInsufficientFunds, e.Kind)
	assert.Equal(t, int64(5000), e.Need)
	assert.Equal(t, int64(1000), a.Balance)
	assert.False(t, pricey.Owned())
	assert.Equal(t, int64(5000), pricey.Worth)

	slave := owned(player("E", 1000, 100), "F")
	master := player("F", 0, 100)
	_, err = testPricing.Buy(slave, master, false, now)
	assert.True(t, errors.Is(err, common.ErrConflict), "купить своего владельца нельзя")
}

func TestBuyAdminIsFree(t *testing.T) {
	admin := player("A", 0, 100)
	b := player("B", 0, 500)

	deal, err := testPricing.Buy(admin, b, true, now)
	require.NoError(t, err)
	assert.Equal(t, int64(500), deal.Price)
	assert.Equal(t, int64(0), deal.Charged)
	assert.Equal(t, int64(0), admin.Balance)
	assert.True(t, b.OwnedBy("A"))
}

func TestRelease(t *testing.T) {
	a := player("A", 0, 100)
	b := owned(player("B", 0, 300), "A")
	require.NoError(t, Release(a, b))
	assert.False(t, b.Owned())
	assert.Nil(t, b.OwnedAt)
	assert.Equal(t, int64(300), b.Worth)

	assert.True(t, errors.Is(Release(a, b), common.ErrConflict))

	c := owned(player("C", 0, 300), "X")
	assert.True(t, errors.Is(Release(a, c), common.ErrPermissionDenied))
}

func TestRansomPaysOwner(t *testing.T) {
	owner := player("A", 10, 100)
	slave := owned(player("B", 1000, 500), "A")

	deal, err := testPricing.Ransom(slave, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(600), deal.Price)
	assert.Equal(t, int64(400), slave.Balance)
	assert.Equal(t, int64(610), owner.Balance)
	assert.False(t, slave.Owned())
	assert.Equal(t, int64(500), slave.Worth)
}

func TestRansomNotEnoughMoneyChangesNothing(t *testing.T) {
	owner := player("A", 10, 100)
	slave := owned(player("B", 599, 500), "A")

	_, err := testPricing.Ransom(slave, owner)
	assert.True(t, errors.Is(err, common.ErrInsufficientFunds))
	assert.True(t, slave.OwnedBy("A"))
	assert.Equal(t, int64(599), slave.Balance)
	assert.Equal(t, int64(10), owner.Balance)
}

func TestSnatch(t *testing.T) {
	prev := player("A", 0, 100)
	target := owned(player("B", 0, 1000), "A")
	snatcher := player("C", 5000, 100)

	deal, err := testPricing.Snatch(snatcher, target, prev, false, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), deal.Charged)
	assert.Equal(t, int64(1500), deal.Compensation)
	assert.Equal(t, int64(3000), snatcher.Balance)
	assert.Equal(t, int64(1500), prev.Balance)
	assert.True(t, target.OwnedBy("C"))
	assert.Equal(t, int64(1200), target.Worth)
}

func TestSnatchAdminStillCompensates(t *testing.T) {
	prev := player("A", 0, 100)
	target := owned(player("B", 0, 1000), "A")
	admin := player("C", 0, 100)

	deal, err := testPricing.Snatch(admin, target, prev, true, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deal.Charged)
	assert.Equal(t, int64(0), admin.Balance)
	assert.Equal(t, int64(1500), prev.Balance)
}

func TestSnatchRejections(t *testing.T) {
	prev := player("A", 0, 100)
	snatcher := player("C", 5000, 100)

	free := player("B", 0, 1000)
	_, err := testPricing.Snatch(snatcher, free, prev, false, now)
	assert.True(t, errors.Is(err, common.ErrConflict))

	mine := owned(player("D", 0, 1000), "C")
	_, err = testPricing.Snatch(snatcher, mine, snatcher, false, now)
	assert.True(t, errors.Is(err, common.ErrConflict))

	moved := owned(player("E", 0, 1000), "Z")
	_, err = testPricing.Snatch(snatcher, moved, prev, false, now)
	assert.True(t, errors.Is(err, common.ErrConflict), "владелец сменился между чтением и блокировкой")

	_, err = testPricing.Snatch(snatcher, snatcher, prev, false, now)
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))

	poor := player("F", 100, 100)
	target := owned(player("G", 0, 1000), "A")
	_, err = testPricing.Snatch(poor, target, prev, false, now)
	assert.True(t, errors.Is(err, common.ErrInsufficientFunds))
	assert.True(t, target.OwnedBy("A"))
	assert.Equal(t, int64(0), prev.Balance, "компенсация не выплачена при отказе")
}

func TestSnatchHugeWorthChargesExactPrice(t *testing.T) {
	c := player("C", 0, 100)
	target := owned(player("T", 0, 500_000_000_000_000), "A")
	a := player("A", 0, 100)

	_, err := testPricing.Snatch(c, target, a, false, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInsufficientFunds))
	var e *common.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, int64(1_000_000_000_000_000), e.Need, "цена считается без переполнения")

	assert.Equal(t, int64(0), c.Balance, "перехватчик не получает денег")
	assert.Equal(t, int64(0), a.Balance)
	assert.True(t, target.OwnedBy("A"))
	assert.Equal(t, int64(500_000_000_000_000), target.Worth)
}

func TestPriceOverflowIsLimitExceeded(t *testing.T) {
	const worth = math.MaxInt64 - 1

	c := player("C", math.MaxInt64, 100)
	target := owned(player("T", 0, worth), "A")
	a := player("A", 0, 100)
	_, err := testPricing.Snatch(c, target, a, false, now)
	assert.True(t, errors.Is(err, common.ErrLimitExceeded))
	assert.Equal(t, int64(math.MaxInt64), c.Balance)
	assert.True(t, target.OwnedBy("A"))

	slave := owned(player("S", math.MaxInt64, worth), "A")
	_, err = testPricing.Ransom(slave, a)
	assert.True(t, errors.Is(err, common.ErrLimitExceeded))
	assert.True(t, slave.OwnedBy("A"))

	free := player("F", 0, worth)
	buyer := player("B", math.MaxInt64, 100)
	_, err = testPricing.Buy(buyer, free, true, now)
	assert.True(t, errors.Is(err, common.ErrLimitExceeded), "рост цены после покупки не помещается в int64")
	assert.False(t, free.Owned())
	assert.Equal(t, int64(worth), free.Worth)
}
