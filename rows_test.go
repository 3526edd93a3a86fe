package pushdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupNumbers(t testing.TB, n int) *Store {
	db := setup(t)
	s := db.Store("nums")
	for i := 1; i <= n; i++ {
		require.NoError(t, s.Put(context.Background(), i, i*10))
	}
	return s
}

func TestRows_MapFilterReduce(t *testing.T) {
	s := setupNumbers(t, 6)

	rows := s.All().
		Filter(func(row *Row) (bool, error) {
			return int(row.Key().(float64))%2 == 0, nil
		}).
		Map(func(row *Row) (any, error) {
			var n int
			if err := row.Decode(&n); err != nil {
				return nil, err
			}
			return n + 1, nil
		}).
		Reduce(func(acc any, row *Row) (any, error) {
			return acc.(int) + row.Value().(int), nil
		}, 0)

	result, err := rows.Collect()
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, Reduction{Count: 3, Value: 21 + 41 + 61}, result[0].Value())
	require.Nil(t, result[0].PhysicalKey())
	require.Nil(t, result[0].Key())
}

func TestRows_MapKeepsKeys(t *testing.T) {
	s := setupNumbers(t, 3)
	var keys []any
	var values []any
	err := s.All().Map(func(row *Row) (any, error) {
		return "v" + row.KeyValue().String(), nil
	}).Each(func(row *Row) error {
		keys = append(keys, row.Key())
		values = append(values, row.Value())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []any{float64(1), float64(2), float64(3)}, keys)
	require.Equal(t, []any{"v1", "v2", "v3"}, values)
}

func TestRows_MappedRowDecodes(t *testing.T) {
	s := setupNumbers(t, 1)
	rows, err := s.All().Map(func(row *Row) (any, error) {
		return map[string]any{"n": row.Key()}, nil
	}).Collect()
	require.NoError(t, err)

	var out struct {
		N float64 `msgpack:"n"`
	}
	require.NoError(t, rows[0].Decode(&out))
	require.Equal(t, 1.0, out.N)
}

func TestRows_ReduceEmpty(t *testing.T) {
	s := setupNumbers(t, 0)
	rows, err := s.All().Reduce(func(acc any, row *Row) (any, error) {
		t.Fatalf("reducer called")
		return nil, nil
	}, "init").Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, Reduction{Count: 0, Value: "init"}, rows[0].Value())
}

func TestRows_CallbackErrorStopsStream(t *testing.T) {
	s := setupNumbers(t, 5)
	var seen int
	rows, err := s.All().Map(func(row *Row) (any, error) {
		seen++
		if seen == 3 {
			return nil, errBoom
		}
		return row.Value(), nil
	}).Collect()
	require.ErrorIs(t, err, errBoom)
	require.Len(t, rows, 2)
	require.Equal(t, 3, seen)

	_, err = s.All().Filter(func(row *Row) (bool, error) {
		return false, errBoom
	}).Collect()
	require.ErrorIs(t, err, errBoom)

	_, err = s.All().Reduce(func(acc any, row *Row) (any, error) {
		return nil, errBoom
	}, nil).Collect()
	require.ErrorIs(t, err, errBoom)

	err = s.All().Each(func(row *Row) error {
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
}

func TestRows_ChainedSourceCannotBeConsumed(t *testing.T) {
	s := setupNumbers(t, 2)
	src := s.All()
	mapped := src.Map(func(row *Row) (any, error) { return row.Value(), nil })

	again := src.Filter(func(row *Row) (bool, error) { return true, nil })
	_, err := again.Collect()
	require.ErrorIs(t, err, errRowsChained)

	rows, err := mapped.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.False(t, src.Next())
	require.ErrorIs(t, src.Err(), errRowsChained)
}

func TestRows_ManualIteration(t *testing.T) {
	s := setupNumbers(t, 3)
	rows := s.Range(2, 100)
	var got []int64
	for rows.Next() {
		got = append(got, rows.Row().Value().(int64))
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	require.NoError(t, rows.Close())
	require.Equal(t, []int64{20, 30}, got)
	require.False(t, rows.Next())
}

func TestRows_CloseBeforeConsuming(t *testing.T) {
	s := setupNumbers(t, 3)
	rows := s.All()
	require.True(t, rows.Next())
	require.NoError(t, rows.Close())
	require.False(t, rows.Next())

	require.NoError(t, s.All().Close())
}

func TestRows_LazyKeyParsing(t *testing.T) {
	s := setupNumbers(t, 1)
	rows, err := s.All().Collect()
	require.NoError(t, err)
	row := rows[0]
	require.False(t, row.keyDecoded)
	k, err := row.ParsedKey()
	require.NoError(t, err)
	require.True(t, row.keyDecoded)
	require.Equal(t, KindRecord, k.Kind)
	require.Equal(t, "nums", k.Namespace)
	require.Empty(t, row.Disambiguator())

	synthetic := &Row{value: 1}
	_, err = synthetic.ParsedKey()
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, synthetic.KeyValue().IsNull())
}
