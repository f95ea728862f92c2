// Package common — errors.go определяет типизированные ошибки движка экономики.
// Каждая ошибка несёт вид (Kind) и структурированные детали (суммы, оставшееся время),
// чтобы внешний слой мог отрисовать точное сообщение пользователю.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Kind — вид ошибки из таксономии движка.
type Kind int

const (
	KindInternal          Kind = iota // Инфраструктурная ошибка (БД и т.п.)
	KindNotRegistered                 // Игрок отсутствует в реестре
	KindPermissionDenied              // Нет прав администратора/владельца
	KindInvalidArgument               // Некорректная сумма, стратегия, тип карты, культура
	KindInsufficientFunds             // Не хватает баланса или вклада
	KindLimitExceeded                 // Превышен лимит вклада, кредита, участков
	KindCooldown                      // Действие на перезарядке
	KindConflict                      // Двойной захват, неверное состояние владения, гонка
	KindNotFound                      // Неизвестная цель, красный конверт, карта
)

var kindNames = map[Kind]string{
	KindInternal:          "internal",
	KindNotRegistered:     "not_registered",
	KindPermissionDenied:  "permission_denied",
	KindInvalidArgument:   "invalid_argument",
	KindInsufficientFunds: "insufficient_funds",
	KindLimitExceeded:     "limit_exceeded",
	KindCooldown:          "cooldown",
	KindConflict:          "conflict",
	KindNotFound:          "not_found",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error — ошибка движка с деталями.
type Error struct {
	Kind  Kind
	Msg   string
	Need  int64         // Сколько требовалось (для InsufficientFunds)
	Have  int64         // Сколько есть
	Limit int64         // Граница (для LimitExceeded)
	Wait  time.Duration // Сколько ждать (для Cooldown и активных аренд)
	Cause error         // Исходная ошибка, если есть
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is сравнивает ошибки по виду, поэтому errors.Is(err, ErrConflict)
// срабатывает для любой ошибки вида KindConflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Сентинелы для errors.Is
var (
	// ErrNotRegistered — игрок не зарегистрирован
	ErrNotRegistered = &Error{Kind: KindNotRegistered, Msg: "игрок не зарегистрирован"}
	// ErrPermissionDenied — нет прав
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied, Msg: "недостаточно прав"}
	// ErrInvalidArgument — некорректный аргумент
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Msg: "некорректный аргумент"}
	// ErrInsufficientFunds — недостаточно средств
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Msg: "недостаточно средств"}
	// ErrLimitExceeded — превышен лимит
	ErrLimitExceeded = &Error{Kind: KindLimitExceeded, Msg: "превышен лимит"}
	// ErrCooldown — действие ещё на перезарядке
	ErrCooldown = &Error{Kind: KindCooldown, Msg: "действие на перезарядке"}
	// ErrConflict — конфликт состояния
	ErrConflict = &Error{Kind: KindConflict, Msg: "конфликт состояния"}
	// ErrNotFound — не найдено
	ErrNotFound = &Error{Kind: KindNotFound, Msg: "не найдено"}
)

// Newf создаёт ошибку заданного вида с форматированным сообщением.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// InvalidArgument — короткий конструктор для некорректных аргументов.
func InvalidArgument(format string, args ...any) *Error {
	return Newf(KindInvalidArgument, format, args...)
}

// NotFound — короткий конструктор для отсутствующих сущностей.
func NotFound(format string, args ...any) *Error {
	return Newf(KindNotFound, format, args...)
}

// Conflict — короткий конструктор для конфликтов состояния.
func Conflict(format string, args ...any) *Error {
	return Newf(KindConflict, format, args...)
}

// PermissionDenied — короткий конструктор для отказа в правах.
func PermissionDenied(format string, args ...any) *Error {
	return Newf(KindPermissionDenied, format, args...)
}

// InsufficientFunds сообщает, сколько нужно и сколько есть.
func InsufficientFunds(what string, need, have int64) *Error {
	return &Error{
		Kind: KindInsufficientFunds,
		Msg:  fmt.Sprintf("недостаточно средств (%s): нужно %d, есть %d", what, need, have),
		Need: need,
		Have: have,
	}
}

// LimitExceeded сообщает о превышении лимита.
func LimitExceeded(what string, limit, want int64) *Error {
	return &Error{
		Kind:  KindLimitExceeded,
		Msg:   fmt.Sprintf("превышен лимит (%s): лимит %d, запрошено %d", what, limit, want),
		Need:  want,
		Limit: limit,
	}
}

// Cooldown сообщает, сколько осталось ждать (округлено вверх до секунды).
func Cooldown(what string, wait time.Duration) *Error {
	wait = time.Duration(CeilSeconds(wait)) * time.Second
	return &Error{
		Kind: KindCooldown,
		Msg:  fmt.Sprintf("%s: подождите %s", what, wait),
		Wait: wait,
	}
}

// Wrap оборачивает инфраструктурную ошибку в ошибку заданного вида.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf возвращает вид ошибки. Ошибки не из таксономии считаются KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
