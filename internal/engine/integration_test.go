package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/economy-core/internal/app"
	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/features/market"
	"serotonyl.ru/economy-core/internal/features/work"
	"serotonyl.ru/economy-core/internal/testkit"
)

func register(t *testing.T, a *app.App, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := a.Engine.Register(context.Background(), id, "player-"+id, "chat")
		require.NoError(t, err)
	}
}

func totalBalance(t *testing.T, a *app.App) int64 {
	t.Helper()
	var sum int64
	require.NoError(t, a.DB.QueryRow(context.Background(),
		`SELECT COALESCE(SUM(balance + deposit), 0) FROM players`).Scan(&sum))
	return sum
}

func TestConcurrentBuyHasSingleWinner(t *testing.T) {
	a := testkit.App(t, testkit.Config(t))
	ctx := context.Background()

	const buyers = 8
	register(t, a, "target")
	ids := make([]string, buyers)
	for i := range ids {
		ids[i] = fmt.Sprintf("buyer-%d", i)
	}
	register(t, a, ids...)

	var wins atomic.Int32
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			_, err := a.Engine.Buy(ctx, id, "target")
			switch {
			case err == nil:
				wins.Add(1)
				return nil
			case errors.Is(err, common.ErrConflict):
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), wins.Load())

	prof, err := a.Engine.Profile(ctx, "target")
	require.NoError(t, err)
	require.NotNil(t, prof.Player.OwnerID)

	owner := *prof.Player.OwnerID
	for _, id := range ids {
		p, err := a.Engine.Profile(ctx, id)
		require.NoError(t, err)
		if id == owner {
			assert.Equal(t, int64(900), p.Player.Balance, "победитель заплатил цену цели")
			continue
		}
		assert.Equal(t, int64(1000), p.Player.Balance, "проигравшие ничего не потеряли")
	}
}

func TestLastShareRace(t *testing.T) {
	a := testkit.App(t, testkit.Config(t))
	ctx := context.Background()

	const grabbers = 10
	register(t, a, "sender")
	ids := make([]string, grabbers)
	for i := range ids {
		ids[i] = fmt.Sprintf("grabber-%d", i)
	}
	register(t, a, ids...)

	sent, err := a.Engine.SendRedPacket(ctx, "sender", "chat", 500, 3)
	require.NoError(t, err)

	var claimed atomic.Int64
	var wins atomic.Int32
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			res, err := a.Engine.GrabRedPacket(ctx, id, "chat", sent.Packet.ID)
			switch {
			case err == nil:
				wins.Add(1)
				claimed.Add(res.Amount)
				return nil
			case errors.Is(err, common.ErrConflict):
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(3), wins.Load())
	assert.Equal(t, int64(500), claimed.Load(), "конверт раздан полностью")

	details, err := a.Engine.RedPacketDetails(ctx, "sender", sent.Packet.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, details.Packet.Remaining)
	assert.Len(t, details.Grabs, 3)
	assert.NotNil(t, details.Luckiest)
}

func TestMoneyConservedUnderConcurrentTransfers(t *testing.T) {
	cfg := testkit.Config(t)
	cfg.CooldownTransfer = 0
	a := testkit.App(t, cfg)
	ctx := context.Background()

	ids := []string{"a", "b", "c", "d"}
	register(t, a, ids...)
	before := totalBalance(t, a)

	var fees atomic.Int64
	var g errgroup.Group
	for i := 0; i < 40; i++ {
		from, to := ids[i%len(ids)], ids[(i+1)%len(ids)]
		amount := int64(50 + i*7)
		g.Go(func() error {
			res, err := a.Engine.Transfer(ctx, from, to, amount)
			switch {
			case err == nil:
				fees.Add(res.Fee)
				return nil
			case errors.Is(err, common.ErrInsufficientFunds), errors.Is(err, common.ErrConflict):
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, before-fees.Load(), totalBalance(t, a), "деньги уходят только в комиссию")
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	a := testkit.App(t, testkit.Config(t))
	ctx := context.Background()
	register(t, a, "saver")

	dep, err := a.Engine.Deposit(ctx, "saver", 400)
	require.NoError(t, err)
	assert.Equal(t, int64(600), dep.Balance)
	assert.Equal(t, int64(400), dep.Deposit)

	wd, err := a.Engine.Withdraw(ctx, "saver", 400)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), wd.Balance)
	assert.Equal(t, int64(0), wd.Deposit)

	_, err = a.Engine.Withdraw(ctx, "saver", 1)
	assert.True(t, errors.Is(err, common.ErrInsufficientFunds))

	history, err := a.Engine.History(ctx, "saver", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(400), history[0].Amount)
	assert.Equal(t, int64(-400), history[1].Amount)
}

func TestClaimInterestIsIdempotent(t *testing.T) {
	a := testkit.App(t, testkit.Config(t))
	ctx := context.Background()
	register(t, a, "rich")

	_, err := a.DB.Exec(ctx, `
		UPDATE players SET balance = 0, deposit = 10000, last_interest_at = $2
		WHERE user_id = $1
	`, "rich", time.Now().Add(-3*time.Hour-time.Minute))
	require.NoError(t, err)

	var claimed atomic.Int64
	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			res, err := a.Engine.ClaimInterest(ctx, "rich")
			if err != nil && !errors.Is(err, common.ErrConflict) {
				return err
			}
			if res != nil {
				claimed.Add(res.Interest)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// 10000 * 10bp * 3 часа
	assert.Equal(t, int64(30), claimed.Load())
	prof, err := a.Engine.Profile(ctx, "rich")
	require.NoError(t, err)
	assert.Equal(t, int64(30), prof.Player.Balance)
	assert.Equal(t, int64(0), prof.PendingInterest)
}

func TestUnregisteredAndBannedActors(t *testing.T) {
	cfg := testkit.Config(t)
	cfg.AdminIDs = []string{"root"}
	a := testkit.App(t, cfg)
	ctx := context.Background()
	register(t, a, "root", "user")

	_, err := a.Engine.Work(ctx, "ghost")
	assert.True(t, errors.Is(err, common.ErrNotRegistered))

	banned, err := a.Engine.ToggleBan(ctx, "root", "user")
	require.NoError(t, err)
	assert.True(t, banned)

	_, err = a.Engine.Work(ctx, "user")
	assert.True(t, errors.Is(err, common.ErrPermissionDenied))

	_, err = a.Engine.ToggleBan(ctx, "user", "root")
	assert.True(t, errors.Is(err, common.ErrPermissionDenied))
}

func unclaimedPool(t *testing.T, a *app.App) int64 {
	t.Helper()
	var sum int64
	require.NoError(t, a.DB.QueryRow(context.Background(),
		`SELECT COALESCE(SUM(total_amount - claimed_amount), 0) FROM red_packets WHERE NOT refunded`).Scan(&sum))
	return sum
}

func TestMoneyConservedUnderMixedOperations(t *testing.T) {
	cfg := testkit.Config(t)
	cfg.CooldownTransfer, cfg.CooldownRob, cfg.CooldownBuy = 0, 0, 0
	a := testkit.App(t, cfg)
	ctx := context.Background()

	ids := []string{"p0", "p1", "p2", "p3", "p4", "p5"}
	register(t, a, ids...)
	before := totalBalance(t, a)

	// Комиссии, штрафы и цены покупок сгорают.
	var burned atomic.Int64
	packets := make([]string, 2)
	for i := range packets {
		sent, err := a.Engine.SendRedPacket(ctx, ids[i], "chat", 300, 4)
		require.NoError(t, err)
		burned.Add(sent.Fee)
		packets[i] = sent.Packet.ID
	}

	expected := func(err error) bool {
		for _, target := range []error{common.ErrInsufficientFunds, common.ErrConflict, common.ErrCooldown} {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}

	var g errgroup.Group
	for i := 0; i < 80; i++ {
		actor := ids[i%len(ids)]
		other := ids[(i+1+(i/len(ids))%(len(ids)-1))%len(ids)]
		g.Go(func() error {
			var err error
			switch i % 4 {
			case 0:
				var res *work.TransferResult
				if res, err = a.Engine.Transfer(ctx, actor, other, int64(40+i)); err == nil {
					burned.Add(res.Fee)
				}
			case 1:
				var res *work.RobResult
				if res, err = a.Engine.Rob(ctx, actor, other, "balanced"); err == nil && !res.Success {
					burned.Add(res.Penalty)
				}
			case 2:
				var res *market.DealResult
				if res, err = a.Engine.Buy(ctx, actor, other); err == nil {
					burned.Add(res.Charged)
				}
			default:
				_, err = a.Engine.GrabRedPacket(ctx, actor, "chat", packets[i%len(packets)])
			}
			if err != nil && !expected(err) {
				return fmt.Errorf("%s → %s: %w", actor, other, err)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, before-burned.Load(), totalBalance(t, a)+unclaimedPool(t, a),
		"деньги уходят только в комиссии, штрафы и покупки; остаток лежит в конвертах")
}

func TestLoanInterestCountsAsExpense(t *testing.T) {
	a := testkit.App(t, testkit.Config(t))
	ctx := context.Background()
	register(t, a, "debtor")

	_, err := a.Engine.ApplyLoan(ctx, "debtor", 1000)
	require.NoError(t, err)
	_, err = a.DB.Exec(ctx, `UPDATE players SET last_loan_interest_at = $2 WHERE user_id = $1`,
		"debtor", time.Now().Add(-2*time.Hour-time.Minute))
	require.NoError(t, err)

	prof, err := a.Engine.Profile(ctx, "debtor")
	require.NoError(t, err)
	// 1000 * 50bp * 2 часа
	assert.Equal(t, int64(1010), prof.Player.LoanBalance)
	assert.Equal(t, int64(2000), prof.Player.Balance, "проценты не трогают баланс")

	stats, err := a.Engine.Statistics(ctx, "debtor")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stats.TotalIncome, "доход — только выданный заём")
	assert.Equal(t, int64(10), stats.TotalExpense)
}

func TestGrabsListedInClaimOrder(t *testing.T) {
	a := testkit.App(t, testkit.Config(t))
	ctx := context.Background()
	register(t, a, "sender", "g1", "g2", "g3")

	sent, err := a.Engine.SendRedPacket(ctx, "sender", "chat", 300, 3)
	require.NoError(t, err)
	order := []string{"g3", "g1", "g2"}
	for _, id := range order {
		_, err := a.Engine.GrabRedPacket(ctx, id, "chat", sent.Packet.ID)
		require.NoError(t, err)
	}

	// Время операции берётся до блокировки конверта, поэтому может совпасть
	// или идти не в порядке фиксации. Равные доли проверяют выбор самого раннего.
	_, err = a.DB.Exec(ctx, `UPDATE red_packet_grabs SET created_at = $2, amount = 100 WHERE packet_id = $1`,
		sent.Packet.ID, time.Now())
	require.NoError(t, err)

	details, err := a.Engine.RedPacketDetails(ctx, "sender", sent.Packet.ID)
	require.NoError(t, err)
	require.Len(t, details.Grabs, 3)
	for i, g := range details.Grabs {
		assert.Equal(t, order[i], g.UserID)
	}
	require.NotNil(t, details.Luckiest)
	assert.Equal(t, "g3", details.Luckiest.UserID)
}
