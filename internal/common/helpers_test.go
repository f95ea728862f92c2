package common

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMulBP(t *testing.T) {
	assert.Equal(t, int64(550), MulBP(500, 11000))
	assert.Equal(t, int64(1200), MulBP(1000, 12000))
	assert.Equal(t, int64(99), MulBP(999, 1000))
	assert.Equal(t, int64(0), MulBP(9, 1000))
	assert.Equal(t, int64(1099), MulBP(999, 11000))
}

func TestMulBPCeil(t *testing.T) {
	assert.Equal(t, int64(1), MulBPCeil(1, 100))
	assert.Equal(t, int64(5), MulBPCeil(100, 500))
	assert.Equal(t, int64(6), MulBPCeil(101, 500))
	assert.Equal(t, int64(0), MulBPCeil(0, 500))
}

func TestMulBPWithoutOverflow(t *testing.T) {
	// 5e14 × 2.0: промежуточное произведение больше int64, результат помещается.
	assert.Equal(t, int64(1_000_000_000_000_000), MulBP(500_000_000_000_000, 20000))
	assert.Equal(t, int64(math.MaxInt64), MulBP(math.MaxInt64, 20000), "насыщение вместо знака минус")
	assert.Equal(t, int64(-550), MulBP(-500, 11000))
	assert.Equal(t, int64(math.MaxInt64/10000+1), MulBPCeil(math.MaxInt64, 1))
}

func TestMulBPChecked(t *testing.T) {
	v, err := MulBPChecked("цена", 500_000_000_000_000, 20000)
	assert.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000_000_000), v)

	_, err = MulBPChecked("цена", math.MaxInt64/2+1, 20000)
	assert.True(t, errors.Is(err, ErrLimitExceeded))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, int64(math.MaxInt64), e.Limit)
}

func TestWholeHours(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(0), WholeHours(base, base.Add(59*time.Minute)))
	assert.Equal(t, int64(1), WholeHours(base, base.Add(time.Hour)))
	assert.Equal(t, int64(2), WholeHours(base, base.Add(2*time.Hour+59*time.Minute)))
	assert.Equal(t, int64(0), WholeHours(base, base.Add(-3*time.Hour)))
}

func TestCeilSeconds(t *testing.T) {
	assert.Equal(t, int64(0), CeilSeconds(0))
	assert.Equal(t, int64(1), CeilSeconds(time.Millisecond))
	assert.Equal(t, int64(60), CeilSeconds(time.Minute))
	assert.Equal(t, int64(61), CeilSeconds(time.Minute+time.Nanosecond))
}

func TestPow2(t *testing.T) {
	assert.Equal(t, int64(1), Pow2(0))
	assert.Equal(t, int64(8), Pow2(3))
}

func TestErrorKinds(t *testing.T) {
	err := InsufficientFunds("баланс", 500, 100)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, int64(500), err.Need)
	assert.Equal(t, int64(100), err.Have)

	wrapped := fmt.Errorf("покупка: %w", Conflict("игрок уже куплен"))
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	cd := Cooldown("работа", 1500*time.Millisecond)
	assert.Equal(t, 2*time.Second, cd.Wait)
	assert.Equal(t, "cooldown", cd.Kind.String())
}
