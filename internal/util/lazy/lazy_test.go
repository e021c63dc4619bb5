package lazy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_ResolvesOnce(t *testing.T) {
	t.Parallel()

	var v Value[string]
	calls := 0
	resolve := func() (string, error) {
		calls++
		return "i-123", nil
	}

	for range 3 {
		got, err := v.Get(resolve)
		assert.NoError(t, err)
		assert.Equal(t, "i-123", got)
	}
	assert.Equal(t, 1, calls)
}

func TestValue_CachesFailure(t *testing.T) {
	t.Parallel()

	var v Value[string]
	boom := errors.New("unreachable")
	calls := 0

	_, err := v.Get(func() (string, error) {
		calls++
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = v.Get(func() (string, error) {
		calls++
		return "late", nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestMap_PerKey(t *testing.T) {
	t.Parallel()

	var m Map[string, int]
	calls := map[string]int{}
	get := func(key string, val int) int {
		got, err := m.Get(key, func() (int, error) {
			calls[key]++
			return val, nil
		})
		assert.NoError(t, err)
		return got
	}

	assert.Equal(t, 1, get("us-east-1", 1))
	assert.Equal(t, 2, get("us-west-2", 2))
	assert.Equal(t, 1, get("us-east-1", 99))
	assert.Equal(t, map[string]int{"us-east-1": 1, "us-west-2": 1}, calls)
}

func TestLoader_RetriesAfterFailure(t *testing.T) {
	t.Parallel()

	var l Loader[string, []string]
	boom := errors.New("throttled")
	calls := 0

	_, err := l.Get("us-east-1", func() ([]string, error) {
		calls++
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := l.Get("us-east-1", func() ([]string, error) {
		calls++
		return []string{"i-1"}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"i-1"}, got)

	got, err = l.Get("us-east-1", func() ([]string, error) {
		calls++
		return nil, boom
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"i-1"}, got)
	assert.Equal(t, 2, calls)
}
