// Package vip — VIP-карты: выпуск партиями, погашение и статус.
package vip

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Алфавит без похожих символов (нет I, O, 0, 1).
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeGroups    = 4
	codeGroupSize = 4
)

// NewCode возвращает код вида XXXX-XXXX-XXXX-XXXX.
// Длина алфавита — 32, поэтому остаток от деления байта на неё распределён равномерно.
func NewCode() (string, error) {
	raw := make([]byte, codeGroups*codeGroupSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("ошибка генерации кода: %w", err)
	}

	var b strings.Builder
	b.Grow(len(raw) + codeGroups - 1)
	for i, v := range raw {
		if i > 0 && i%codeGroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(codeCharset[int(v)%len(codeCharset)])
	}
	return b.String(), nil
}

// NormalizeCode приводит введённый код к каноническому виду.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
