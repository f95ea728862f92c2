package ledger

import (
	"context"
	"fmt"
)

// ListFree возвращает свободных игроков по убыванию цены.
// Пустой scope — без фильтра по чату.
func (s *Store) ListFree(ctx context.Context, scope string, limit int) ([]*Player, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE owner_id IS NULL AND ($1 = '' OR register_source = $1)
		ORDER BY worth DESC, user_id
		LIMIT $2
	`, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения рынка: %w", err)
	}
	return collectPlayers(rows)
}

// OwnedBy возвращает игроков, принадлежащих ownerID.
func (s *Store) OwnedBy(ctx context.Context, ownerID string) ([]*Player, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE owner_id = $1
		ORDER BY worth DESC, user_id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения собственности: %w", err)
	}
	return collectPlayers(rows)
}

// RankBy — по чему строится рейтинг.
type RankBy string

const (
	RankWorth  RankBy = "worth"
	RankAssets RankBy = "assets" // balance + deposit
	RankOwned  RankBy = "owned"  // число принадлежащих игроков
)

// RankRow — строка рейтинга.
type RankRow struct {
	UserID   string
	Nickname string
	Value    int64
}

var rankQueries = map[RankBy]string{
	RankWorth: `SELECT user_id, nickname, worth FROM players ORDER BY worth DESC, user_id LIMIT $1`,
	RankAssets: `SELECT user_id, nickname, balance + deposit AS assets FROM players
		ORDER BY assets DESC, user_id LIMIT $1`,
	RankOwned: `SELECT o.user_id, o.nickname, COUNT(s.user_id) AS owned
		FROM players o JOIN players s ON s.owner_id = o.user_id
		GROUP BY o.user_id, o.nickname
		ORDER BY owned DESC, o.user_id LIMIT $1`,
}

// Rank возвращает рейтинг игроков.
func (s *Store) Rank(ctx context.Context, by RankBy, limit int) ([]RankRow, error) {
	query, ok := rankQueries[by]
	if !ok {
		return nil, fmt.Errorf("неизвестный рейтинг %q", by)
	}
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения рейтинга: %w", err)
	}
	defer rows.Close()

	var out []RankRow
	for rows.Next() {
		var r RankRow
		if err := rows.Scan(&r.UserID, &r.Nickname, &r.Value); err != nil {
			return nil, fmt.Errorf("ошибка сканирования рейтинга: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
