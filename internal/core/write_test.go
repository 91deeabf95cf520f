package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInsert(t *testing.T) {
	stmt, err := BuildInsert("Paragraph", Values{}.
		Set("Id", 1337).
		Set("Name", "TestName").
		Set("Content", nil))
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO Paragraph (Id, Name, Content) VALUES (?, ?, ?) RETURNING Id;", stmt.Text())
	assert.Equal(t, []any{1337, "TestName", nil}, stmt.Args())

	out, err := stmt.Inline()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO Paragraph (Id, Name, Content) VALUES (1337, 'TestName', null) RETURNING Id;", out)

	assert.Equal(t, "INSERT INTO Paragraph (Id, Name, Content) VALUES ($1, $2, $3) RETURNING Id;", bind(t, stmt))
}

func TestBuildInsert_SanitizesStrings(t *testing.T) {
	stmt, err := BuildInsert("Story", Values{}.Set("Name", "  Don't panic  "))
	require.NoError(t, err)

	assert.Equal(t, []any{"Don't panic"}, stmt.Args())
	out, err := stmt.Inline()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO Story (Name) VALUES ('Don''t panic') RETURNING Id;", out)
}

func TestBuildInsert_Timestamp(t *testing.T) {
	at := time.Date(2022, 3, 4, 5, 6, 7, 800, time.UTC)
	stmt, err := BuildInsert("Story", Values{}.Set("PublishDate", at))
	require.NoError(t, err)

	assert.Equal(t, []any{"2022-03-04 05:06:07"}, stmt.Args())
}

func TestBuildInsert_Errors(t *testing.T) {
	_, err := BuildInsert("", Values{}.Set("Id", 1))
	assert.ErrorIs(t, err, ErrMissingTable)

	_, err = BuildInsert("Story", nil)
	assert.ErrorIs(t, err, ErrNoValues)

	for _, v := range []any{true, []string{"a"}, map[string]any{}, struct{}{}} {
		_, err = BuildInsert("Story", Values{}.Set("Name", v))
		assert.ErrorIs(t, err, ErrUnsupportedValueType, "%T", v)
	}
}

func TestBuildUpdate(t *testing.T) {
	stmt, err := BuildUpdate("Paragraph", Values{}.
		Set("id", "123").
		Set("name", "Updated Name").
		Set("age", 30))
	require.NoError(t, err)

	assert.Equal(t, "UPDATE Paragraph SET name = ?, age = ? WHERE id = ? RETURNING id;", stmt.Text())
	assert.Equal(t, []any{"Updated Name", 30, "123"}, stmt.Args())

	out, err := stmt.Inline()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE Paragraph SET name = 'Updated Name', age = 30 WHERE id = '123' RETURNING id;", out)

	assert.Equal(t, "UPDATE Paragraph SET name = $1, age = $2 WHERE id = $3 RETURNING id;", bind(t, stmt))
}

func TestBuildUpdate_IDAnyCase(t *testing.T) {
	stmt, err := BuildUpdate("Story", Values{}.Set("Name", "x").Set("Id", "000s1"))
	require.NoError(t, err)
	assert.Equal(t, "UPDATE Story SET Name = ? WHERE id = ? RETURNING id;", stmt.Text())
	assert.Equal(t, []any{"x", "000s1"}, stmt.Args())
}

func TestBuildUpdate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		values  Values
		wantErr error
	}{
		{name: "missing id", table: "Paragraph", values: Values{}.Set("name", "x"), wantErr: ErrMissingID},
		{name: "nil id", table: "Paragraph", values: Values{}.Set("id", nil).Set("name", "x"), wantErr: ErrMissingID},
		{name: "empty id", table: "Paragraph", values: Values{}.Set("id", "").Set("name", "x"), wantErr: ErrMissingID},
		{name: "only id", table: "Paragraph", values: Values{}.Set("id", "1"), wantErr: ErrNoValues},
		{name: "no table", table: "", values: Values{}.Set("id", "1").Set("name", "x"), wantErr: ErrMissingTable},
		{name: "bad value", table: "Paragraph", values: Values{}.Set("id", "1").Set("flag", false), wantErr: ErrUnsupportedValueType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildUpdate(tt.table, tt.values)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuildDelete(t *testing.T) {
	stmt, err := BuildDelete("Chapter", "000c1")
	require.NoError(t, err)

	assert.Equal(t, "DELETE FROM Chapter WHERE id = $1 RETURNING *", bind(t, stmt))
	assert.Equal(t, []any{"000c1"}, stmt.Args())
	assert.Equal(t, "DELETE", stmt.Operation())

	_, err = BuildDelete("", "000c1")
	assert.ErrorIs(t, err, ErrMissingTable)
	_, err = BuildDelete("Chapter", "")
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestValuesFromMap(t *testing.T) {
	values := ValuesFromMap(map[string]any{"Name": "a", "Id": "000s1", "SortNumber": 2})

	require.Len(t, values, 3)
	assert.Equal(t, "Id", values[0].Column)
	assert.Equal(t, "Name", values[1].Column)
	assert.Equal(t, "SortNumber", values[2].Column)

	v, ok := values.Get("sortnumber")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = values.Get("Missing")
	assert.False(t, ok)
	assert.Equal(t, "{Id=000s1, Name=a, SortNumber=2}", values.String())
}
