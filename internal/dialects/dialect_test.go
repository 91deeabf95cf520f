package dialects

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDialect_Postgres(t *testing.T) {
	for _, name := range []string{"postgres", "postgresql"} {
		d := GetDialect(name)
		require.NotNil(t, d)
		assert.Equal(t, "$1", d.Placeholder(1))
		assert.Equal(t, "$12", d.Placeholder(12))
	}
}

func TestGetDialect_Unknown(t *testing.T) {
	assert.Panics(t, func() { GetDialect("oracle") })

	_, ok := Lookup("oracle")
	assert.False(t, ok)
}

func TestPostgresDialect_TranslateError(t *testing.T) {
	d := GetDialect("postgres")

	tests := []struct {
		name     string
		code     pq.ErrorCode
		expected error
	}{
		{name: "unique violation", code: "23505", expected: ErrDuplicateKey},
		{name: "foreign key violation", code: "23503", expected: ErrForeignKey},
		{name: "undefined table", code: "42P01", expected: ErrUndefinedTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.TranslateError(&pq.Error{Code: tt.code, Message: "boom"})
			assert.ErrorIs(t, err, tt.expected)

			var pqErr *pq.Error
			require.ErrorAs(t, err, &pqErr)
			assert.Equal(t, tt.code, pqErr.Code)
		})
	}

	t.Run("unrecognized code", func(t *testing.T) {
		src := &pq.Error{Code: "57014"}
		assert.Same(t, src, d.TranslateError(src))
	})

	t.Run("other errors", func(t *testing.T) {
		assert.Equal(t, assert.AnError, d.TranslateError(assert.AnError))
		assert.NoError(t, d.TranslateError(nil))
	})
}
