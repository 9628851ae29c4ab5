package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

func TestNewColumn(t *testing.T) {
	tests := []struct {
		name        string
		colName     string
		kind        types.Kind
		constraints []Constraint
		want        string
		wantErr     error
	}{
		{
			name:    "plain text column",
			colName: "name",
			kind:    types.KindText,
			want:    "name TEXT",
		},
		{
			name:        "constraints render in fixed order",
			colName:     "id",
			kind:        types.KindInteger,
			constraints: []Constraint{Default(0), Unique(), NotNull(), PrimaryKey()},
			want:        "id INTEGER PRIMARY KEY NOT NULL UNIQUE DEFAULT 0",
		},
		{
			name:        "primary key with order, policy and autoincrement",
			colName:     "id",
			kind:        types.KindInteger,
			constraints: []Constraint{PrimaryKey().Asc().OnConflict(types.ConflictReplace).AutoIncrement()},
			want:        "id INTEGER PRIMARY KEY ASC ON CONFLICT REPLACE AUTOINCREMENT",
		},
		{
			name:        "not null and unique policies",
			colName:     "email",
			kind:        types.KindText,
			constraints: []Constraint{Unique().OnConflict(types.ConflictIgnore), NotNull().OnConflict(types.ConflictFail)},
			want:        "email TEXT NOT NULL ON CONFLICT FAIL UNIQUE ON CONFLICT IGNORE",
		},
		{
			name:        "text default is quoted",
			colName:     "status",
			kind:        types.KindText,
			constraints: []Constraint{Default("it's new")},
			want:        "status TEXT DEFAULT 'it''s new'",
		},
		{
			name:        "real default keeps decimal point",
			colName:     "score",
			kind:        types.KindReal,
			constraints: []Constraint{Default(2.0)},
			want:        "score REAL DEFAULT 2.0",
		},
		{
			name:        "integer default on real column",
			colName:     "score",
			kind:        types.KindReal,
			constraints: []Constraint{Default(3)},
			want:        "score REAL DEFAULT 3",
		},
		{
			name:        "uint64 default",
			colName:     "qty",
			kind:        types.KindInteger,
			constraints: []Constraint{Default(uint64(math.MaxInt64))},
			want:        "qty INTEGER DEFAULT 9223372036854775807",
		},
		{
			name:        "uint default",
			colName:     "qty",
			kind:        types.KindInteger,
			constraints: []Constraint{Default(uint(5))},
			want:        "qty INTEGER DEFAULT 5",
		},
		{
			name:        "blob default",
			colName:     "data",
			kind:        types.KindBlob,
			constraints: []Constraint{Default([]byte{0xca, 0xfe})},
			want:        "data BLOB DEFAULT X'CAFE'",
		},
		{
			name:        "null default",
			colName:     "note",
			kind:        types.KindText,
			constraints: []Constraint{Default(nil)},
			want:        "note TEXT DEFAULT NULL",
		},
		{
			name:        "default expression",
			colName:     "created",
			kind:        types.KindText,
			constraints: []Constraint{DefaultExpr("CURRENT_TIMESTAMP")},
			want:        "created TEXT DEFAULT (CURRENT_TIMESTAMP)",
		},
		{
			name:    "invalid name",
			colName: "1bad",
			kind:    types.KindText,
			wantErr: types.ErrInvalidName,
		},
		{
			name:    "reserved word",
			colName: "select",
			kind:    types.KindText,
			wantErr: types.ErrInvalidName,
		},
		{
			name:    "expression-only kind",
			colName: "flag",
			kind:    types.KindBool,
			wantErr: types.ErrInvalidKind,
		},
		{
			name:        "duplicate primary key",
			colName:     "id",
			kind:        types.KindInteger,
			constraints: []Constraint{PrimaryKey(), PrimaryKey().Desc()},
			wantErr:     types.ErrDuplicateConstraint,
		},
		{
			name:        "autoincrement on text",
			colName:     "id",
			kind:        types.KindText,
			constraints: []Constraint{PrimaryKey().AutoIncrement()},
			wantErr:     types.ErrConflictingConstraint,
		},
		{
			name:        "autoincrement on descending key",
			colName:     "id",
			kind:        types.KindInteger,
			constraints: []Constraint{PrimaryKey().Desc().AutoIncrement()},
			wantErr:     types.ErrConflictingConstraint,
		},
		{
			name:        "text default on integer column",
			colName:     "age",
			kind:        types.KindInteger,
			constraints: []Constraint{Default("old")},
			wantErr:     types.ErrKindMismatch,
		},
		{
			name:        "unsigned default overflows",
			colName:     "qty",
			kind:        types.KindInteger,
			constraints: []Constraint{Default(uint64(math.MaxUint64))},
			wantErr:     types.ErrUnsupportedValue,
		},
		{
			name:        "unsupported default",
			colName:     "age",
			kind:        types.KindInteger,
			constraints: []Constraint{Default(struct{}{})},
			wantErr:     types.ErrUnsupportedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewColumn(tt.colName, tt.kind, tt.constraints...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.definition())
		})
	}
}

func TestColumnAccessors(t *testing.T) {
	c := MustColumn("id", types.KindInteger, NotNull(), PrimaryKey())
	assert.Equal(t, "id", c.Name())
	assert.Equal(t, types.KindInteger, c.Kind())
	assert.True(t, c.IsPrimaryKey())
	assert.True(t, c.IsNotNull())
	assert.False(t, c.IsUnique())
	assert.False(t, c.HasDefault())
	assert.Nil(t, c.Table())
	assert.Equal(t, "id", c.QualifiedName())
	assert.Same(t, c, c.Base())

	cs := c.Constraints()
	require.Len(t, cs, 2)
	_, isPK := cs[0].(PrimaryKeyConstraint)
	assert.True(t, isPK, "primary key sorts first")

	assert.Panics(t, func() { MustColumn("", types.KindText) })
}
