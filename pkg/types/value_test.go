package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	t.Run("int accepts int and whole floats", func(t *testing.T) {
		v, err := Coerce(KindInt, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)

		v, err = Coerce(KindInt, float64(7))
		require.NoError(t, err)
		assert.Equal(t, int64(7), v)

		_, err = Coerce(KindInt, 7.5)
		assert.ErrorIs(t, err, ErrValueKind)
	})

	t.Run("email requires an at sign", func(t *testing.T) {
		v, err := Coerce(KindEmail, "who@example.com")
		require.NoError(t, err)
		assert.Equal(t, "who@example.com", v)

		_, err = Coerce(KindEmail, "not-an-address")
		assert.ErrorIs(t, err, ErrValueKind)
	})

	t.Run("uuid parses strings", func(t *testing.T) {
		id := uuid.New()
		v, err := Coerce(KindUUID, id.String())
		require.NoError(t, err)
		assert.Equal(t, id, v)

		_, err = Coerce(KindUUID, "nope")
		assert.ErrorIs(t, err, ErrValueKind)
	})

	t.Run("time parses RFC 3339 strings", func(t *testing.T) {
		v, err := Coerce(KindTime, "2025-03-14T09:26:53Z")
		require.NoError(t, err)
		assert.Equal(t, 2025, v.(time.Time).Year())
	})

	t.Run("nil passes through every kind", func(t *testing.T) {
		for _, k := range []Kind{KindBool, KindInt, KindString, KindRef, KindMap, KindAny} {
			v, err := Coerce(k, nil)
			require.NoError(t, err)
			assert.Nil(t, v)
		}
	})

	t.Run("mismatched types are rejected", func(t *testing.T) {
		_, err := Coerce(KindBool, "true")
		assert.ErrorIs(t, err, ErrValueKind)
		_, err = Coerce(KindMap, []any{1, 2})
		assert.ErrorIs(t, err, ErrValueKind)
	})
}

func TestColumnCodec(t *testing.T) {
	t.Run("bool stores as integer", func(t *testing.T) {
		enc, err := EncodeColumn(KindBool, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), enc)

		v, err := DecodeColumn(KindBool, int64(1))
		require.NoError(t, err)
		assert.Equal(t, true, v)
	})

	t.Run("time survives the text column", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 30, 0, 500, time.UTC)
		enc, err := EncodeColumn(KindTime, now)
		require.NoError(t, err)

		v, err := DecodeColumn(KindTime, enc)
		require.NoError(t, err)
		assert.True(t, now.Equal(v.(time.Time)))
	})

	t.Run("date keeps only the day", func(t *testing.T) {
		enc, err := EncodeColumn(KindDate, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, "2025-06-01", enc)
	})

	t.Run("generic kinds have no column form", func(t *testing.T) {
		_, err := EncodeColumn(KindMap, map[string]any{})
		assert.ErrorIs(t, err, ErrValueKind)
	})
}

func TestBlobCodec(t *testing.T) {
	t.Run("bytes survive the blob", func(t *testing.T) {
		payload := []byte{0x00, 0x01, 0xff}
		blob, err := EncodeBlob(KindBytes, payload)
		require.NoError(t, err)

		v, err := DecodeBlob(KindBytes, blob)
		require.NoError(t, err)
		assert.Equal(t, payload, v)
	})

	t.Run("map round-trips", func(t *testing.T) {
		m := map[string]any{"a": float64(1), "b": "two"}
		blob, err := EncodeBlob(KindMap, m)
		require.NoError(t, err)

		v, err := DecodeBlob(KindMap, blob)
		require.NoError(t, err)
		assert.Equal(t, m, v)
	})

	t.Run("reference encodes a type and key token", func(t *testing.T) {
		inst := NewInstance("asset", nil)
		inst.BindKey(NewKey([]string{"id"}, []any{int64(9)}))
		blob, err := EncodeBlob(KindRef, inst)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"asset","key":{"id":9}}`, string(blob))

		v, err := DecodeBlob(KindRef, blob)
		require.NoError(t, err)
		rv := v.(*RefValue)
		assert.Equal(t, "asset", rv.Type)
		assert.Equal(t, float64(9), rv.Key["id"])
	})

	t.Run("null blob decodes to nil", func(t *testing.T) {
		v, err := DecodeBlob(KindMap, []byte("null"))
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestKeyString(t *testing.T) {
	k := NewKey([]string{"realm", "name"}, []any{"combat", "damage"})
	assert.Equal(t, "realm=combat&name=damage", k.String())
	assert.False(t, k.IsZero())
	assert.True(t, Key{}.IsZero())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "deadbeef", FormatValue([]byte{0xde, 0xad, 0xbe, 0xef}))
	id := uuid.New()
	assert.Equal(t, id.String(), FormatValue(id))
	assert.Equal(t, "42", FormatValue(int64(42)))
}
