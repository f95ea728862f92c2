// Package middleware содержит обёртки вокруг операций движка: логирование вызовов,
// восстановление после паники и кэш недавних регистраций.
package middleware

import (
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
)

// LogCall логирует завершённую операцию движка.
// Ошибки предметной области пишутся на уровне Debug, инфраструктурные — Error.
func LogCall(op, userID string, started time.Time, err error) {
	entry := log.WithFields(log.Fields{
		"op":       op,
		"user_id":  userID,
		"duration": time.Since(started).Round(time.Microsecond),
	})
	if err == nil {
		entry.Debug("Операция выполнена")
		return
	}

	kind := common.KindOf(err)
	entry = entry.WithField("kind", kind.String()).WithError(err)
	if kind == common.KindInternal {
		entry.Error("Операция завершилась ошибкой")
		return
	}
	entry.Debug("Операция отклонена")
}
