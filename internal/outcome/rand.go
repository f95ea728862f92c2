// Package outcome разрешает вероятностные действия: ограбление, справедливый раздел
// красного конверта и случайный урожай. Источник случайности внедряется,
// поэтому в тестах результаты детерминированы.
package outcome

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source — источник случайных чисел.
type Source interface {
	// Int64N возвращает число в [0, n). n > 0.
	Int64N(n int64) int64
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Int64N(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Int64N(n)
}

// NewSource создаёт потокобезопасный источник, засеянный из crypto/rand.
func NewSource() (Source, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return NewSeeded(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])), nil
}

// NewSeeded создаёт детерминированный источник (для тестов и воспроизведения).
func NewSeeded(seed1, seed2 uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// chance — испытание Бернулли с вероятностью bp/10000.
func chance(src Source, bp int64) bool {
	return src.Int64N(10000) < bp
}
