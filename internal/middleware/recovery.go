package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic вызывается через defer в фоновых задачах.
func RecoverFromPanic(component string) {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": component,
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА — восстановлено")
	}
}
