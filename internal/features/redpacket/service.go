package redpacket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/ledger"
	"serotonyl.ru/economy-core/internal/outcome"
)

// Service — отправка, получение и возврат красных конвертов.
// Строка конверта всегда блокируется раньше строк игроков.
type Service struct {
	store *ledger.Store
	repo  *Repository
	cfg   *config.Config
	src   outcome.Source
}

// NewService создаёт сервис красных конвертов.
func NewService(store *ledger.Store, repo *Repository, cfg *config.Config, src outcome.Source) *Service {
	return &Service{store: store, repo: repo, cfg: cfg, src: src}
}

// SendResult — итог отправки.
type SendResult struct {
	Packet  *Packet
	Fee     int64
	Balance int64
}

// GrabResult — итог получения доли.
type GrabResult struct {
	PacketID  string
	Amount    int64
	Balance   int64
	Remaining int
	// Решается только когда конверт разобран полностью
	Exhausted bool
	Lucky     bool
	Luckiest  *outcome.Share
}

// Details — конверт, его доли и самый удачливый получатель.
type Details struct {
	Packet   *Packet
	Grabs    []Grab
	Luckiest *outcome.Share
}

// NewPacketID — "RP" и первые 8 символов UUID.
func NewPacketID() string {
	return "RP" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Fee — комиссия за конверт, округление вверх. Администраторы не платят.
func Fee(amount, feeBP int64, admin bool) int64 {
	if admin {
		return 0
	}
	return common.MulBPCeil(amount, feeBP)
}

// Send списывает amount + комиссию и создаёт пул из count долей.
func (s *Service) Send(ctx context.Context, a ledger.Actor, senderName, scope string, amount int64, count int) (*SendResult, error) {
	switch {
	case amount <= 0 || count <= 0:
		return nil, common.InvalidArgument("сумма и количество долей должны быть положительными")
	case amount < int64(count):
		return nil, common.InvalidArgument("сумма %d меньше числа долей %d", amount, count)
	}

	fee := Fee(amount, s.cfg.RedPacketFeeBP, a.Admin)
	pk := &Packet{
		ID:          NewPacketID(),
		SenderID:    a.ID,
		SenderName:  senderName,
		TotalAmount: amount,
		TotalCount:  count,
		Remaining:   count,
		Scope:       scope,
		CreatedAt:   a.Now,
		ExpiresAt:   a.Now.Add(s.cfg.RedPacketTTL),
	}

	var res SendResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		if err := (ledger.Delta{Balance: -(amount + fee)}).Apply(p); err != nil {
			return err
		}
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, pk); err != nil {
			return err
		}
		res = SendResult{Packet: pk, Fee: fee, Balance: p.Balance}
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindRedPacket, -(amount + fee), "",
			fmt.Sprintf("красный конверт %s на %d долей", pk.ID, count), a.Now))
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"packet_id": pk.ID,
		"sender":    a.ID,
		"amount":    amount,
		"count":     count,
		"fee":       fee,
	}).Info("Красный конверт отправлен")
	return &res, nil
}

// Grab выдаёт игроку случайную долю. Гонка за последнюю долю разрешается блокировкой
// строки конверта; при конфликте сериализации транзакция повторяется.
func (s *Service) Grab(ctx context.Context, a ledger.Actor, userName, scope, packetID string) (*GrabResult, error) {
	var res GrabResult
	err := s.store.InTxRetry(ctx, func(tx *ledger.Tx) error {
		res = GrabResult{PacketID: packetID}

		pk, err := s.repo.Lock(ctx, tx, packetID)
		if err != nil {
			return err
		}
		switch {
		case scope != "" && pk.Scope != scope:
			return common.NotFound("красный конверт %s не найден в этом чате", packetID)
		case pk.Expired(a.Now):
			return common.Conflict("красный конверт %s истёк", packetID)
		case pk.Exhausted():
			return common.Conflict("красный конверт %s уже разобран", packetID)
		}
		grabbed, err := s.repo.HasGrab(ctx, tx, packetID, a.ID)
		if err != nil {
			return err
		}
		if grabbed {
			return common.Conflict("вы уже забрали долю из этого конверта")
		}

		share, err := outcome.NextShare(s.src, pk.TotalAmount, pk.ClaimedAmount, pk.Remaining)
		if err != nil {
			return err
		}

		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		if err := (ledger.Delta{Balance: share}).Apply(p); err != nil {
			return err
		}
		if err := tx.Save(ctx, p); err != nil {
			return err
		}

		pk.Remaining--
		pk.ClaimedAmount += share
		if err := s.repo.Update(ctx, tx, pk); err != nil {
			return err
		}
		if err := s.repo.InsertGrab(ctx, tx, Grab{
			PacketID:  packetID,
			UserID:    a.ID,
			UserName:  userName,
			Amount:    share,
			CreatedAt: a.Now,
		}); err != nil {
			return err
		}

		res.Amount = share
		res.Balance = p.Balance
		res.Remaining = pk.Remaining
		if pk.Exhausted() {
			grabs, err := s.repo.Grabs(ctx, tx, packetID)
			if err != nil {
				return err
			}
			res.Exhausted = true
			if best, ok := outcome.Luckiest(toShares(grabs)); ok {
				res.Luckiest = &best
				res.Lucky = best.UserID == a.ID
			}
		}
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindRedPacket, share, pk.SenderID,
			fmt.Sprintf("доля из конверта %s", packetID), a.Now))
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"packet_id": packetID,
		"user_id":   a.ID,
		"amount":    res.Amount,
		"remaining": res.Remaining,
	}).Debug("Доля красного конверта выдана")
	return &res, nil
}

// Details возвращает конверт и его доли. Самый удачливый определяется только у разобранного конверта.
func (s *Service) Details(ctx context.Context, packetID string) (*Details, error) {
	pk, err := s.repo.Get(ctx, packetID)
	if err != nil {
		return nil, err
	}
	grabs, err := s.repo.Grabs(ctx, nil, packetID)
	if err != nil {
		return nil, err
	}
	d := &Details{Packet: pk, Grabs: grabs}
	if pk.Exhausted() {
		if best, ok := outcome.Luckiest(toShares(grabs)); ok {
			d.Luckiest = &best
		}
	}
	return d, nil
}

// RefundExpired возвращает отправителям неразобранный остаток истёкших конвертов
// и удаляет закрытые конверты. Каждый конверт — отдельная транзакция.
func (s *Service) RefundExpired(ctx context.Context, now time.Time) (refunded int, total int64, err error) {
	ids, err := s.repo.ExpiredUnrefunded(ctx, now)
	if err != nil {
		return 0, 0, err
	}

	for _, id := range ids {
		var amount int64
		err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
			pk, err := s.repo.Lock(ctx, tx, id)
			if err != nil {
				return err
			}
			if pk.Refunded || !pk.Expired(now) {
				return nil
			}
			pk.Refunded = true
			amount = pk.Unclaimed()
			if err := s.repo.Update(ctx, tx, pk); err != nil {
				return err
			}
			if amount == 0 {
				return nil
			}

			sender, err := tx.ApplyDelta(ctx, pk.SenderID, ledger.Delta{Balance: amount})
			if err != nil {
				return err
			}
			return tx.Append(ctx, ledger.NewEntry(sender, ledger.KindRedPacketRefund, amount, "",
				fmt.Sprintf("возврат остатка конверта %s", pk.ID), now))
		})
		if err != nil {
			log.WithError(err).WithField("packet_id", id).Warn("Не удалось вернуть остаток конверта")
			continue
		}
		if amount > 0 {
			refunded++
			total += amount
		}
	}

	deleted, err := s.repo.DeleteSettled(ctx, now)
	if err != nil {
		return refunded, total, err
	}
	log.WithFields(log.Fields{
		"refunded": refunded,
		"amount":   total,
		"deleted":  deleted,
	}).Info("Истёкшие красные конверты обработаны")
	return refunded, total, nil
}

func toShares(grabs []Grab) []outcome.Share {
	shares := make([]outcome.Share, len(grabs))
	for i, g := range grabs {
		shares[i] = outcome.Share{UserID: g.UserID, Amount: g.Amount}
	}
	return shares
}
