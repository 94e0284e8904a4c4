package unpack

import (
	"encoding/json"
	"testing"

	"github.com/lepinkainen/demeter/internal/errors"
	"github.com/lepinkainen/demeter/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fdaExport = `[
	{
		"tableName": "Active Investigations",
		"data": [
			{
				"DatePosted": "07/01/2025",
				"Reference#": "1124",
				"PathogenorCause ofIllness": "Salmonella",
				"Product(s)Linked toIllnesses(if any)": "Not Yet Identified",
				"TotalCaseCount": "18"
			},
			{
				"DatePosted": "06/12/2025",
				"Reference#": "1119",
				"PathogenorCause ofIllness": "E. coli O157:H7",
				"Product(s)Linked toIllnesses(if any)": "Romaine Lettuce",
				"TotalCaseCount": "42"
			}
		]
	},
	{
		"tableName": "Closed Investigations 2025",
		"data": [
			{
				"DatePosted": "03/20/2025",
				"Reference#": "1101",
				"PathogenorCause ofIllness": "Listeria monocytogenes",
				"TotalCaseCount": "11"
			}
		]
	},
	{
		"tableName": "Closed Investigations 2024",
		"data": []
	}
]`

func writeSource(t *testing.T, content string) *Unpacker {
	t.Helper()
	env := testutil.NewTestEnv(t)
	env.WriteFileString("fda.json", content)
	return NewUnpacker(env.Path("fda.json"))
}

func TestUnpack_FDAExport(t *testing.T) {
	u := writeSource(t, fdaExport)

	coll, err := u.Unpack()
	require.NoError(t, err)
	require.NotNil(t, coll)

	assert.True(t, u.Unpacked())
	assert.Equal(t, 3, coll.NumEntries())
	assert.Equal(t, []string{
		"Active Investigations",
		"Closed Investigations 2025",
		"Closed Investigations 2024",
	}, coll.Keys())

	active, ok := coll.Get("Active Investigations")
	require.True(t, ok)
	assert.Equal(t, []string{
		"DatePosted",
		"Reference#",
		"PathogenorCause ofIllness",
		"Product(s)Linked toIllnesses(if any)",
		"TotalCaseCount",
	}, active.Columns())
	require.Equal(t, 2, active.RowCount())
	assert.Equal(t, "Salmonella", active.Rows()[0]["PathogenorCause ofIllness"])

	// An empty data sequence still counts as a successfully unpacked table.
	empty, ok := coll.Get("Closed Investigations 2024")
	require.True(t, ok)
	assert.Equal(t, 0, empty.RowCount())
	assert.Empty(t, empty.Columns())
}

func TestUnpack_RoundTrip(t *testing.T) {
	u := writeSource(t, `[
		{"tableName":"T1","data":[{"a":1,"b":"x"}]},
		{"tableName":"T2","data":[{"a":2,"b":"y"},{"a":3,"b":"z"}]}
	]`)

	coll, err := u.Unpack()
	require.NoError(t, err)

	assert.Equal(t, []string{"T1", "T2"}, coll.Keys())
	assert.Equal(t, 2, coll.NumEntries())

	t1, ok := coll.Get("T1")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, t1.Columns())
	require.Equal(t, 1, t1.RowCount())
	assert.Equal(t, json.Number("1"), t1.Rows()[0]["a"])
	assert.Equal(t, "x", t1.Rows()[0]["b"])

	t2, ok := coll.Get("T2")
	require.True(t, ok)
	assert.Equal(t, 2, t2.RowCount())
	assert.Equal(t, json.Number("3"), t2.Rows()[1]["a"])
}

func TestUnpack_AccessorsAreIdempotent(t *testing.T) {
	u := writeSource(t, fdaExport)

	coll, err := u.Unpack()
	require.NoError(t, err)

	assert.Equal(t, coll.Keys(), coll.Keys())
	assert.Equal(t, coll.Structure(), coll.Structure())
	assert.Equal(t, coll.NumEntries(), coll.NumEntries())
	assert.Same(t, coll, u.Collection())

	// Mutating a returned key slice must not leak into the collection.
	keys := coll.Keys()
	keys[0] = "mutated"
	assert.Equal(t, "Active Investigations", coll.Keys()[0])
}

func TestUnpack_MissingFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	u := NewUnpacker(env.Path("does-not-exist.json"))

	coll, err := u.Unpack()
	require.Error(t, err)
	assert.True(t, errors.IsSourceNotFoundError(err))
	assert.Nil(t, coll)
	assert.False(t, u.Unpacked())
	assert.Nil(t, u.Collection())
}

func TestUnpack_MissingRequiredColumns(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "no tableName",
			content: `[{"data":[{"a":1}]}]`,
			wantMsg: "input JSON is missing the required columns: tableName",
		},
		{
			name:    "no data",
			content: `[{"tableName":"T1"}]`,
			wantMsg: "input JSON is missing the required columns: data",
		},
		{
			name:    "neither",
			content: `[{"name":"T1"}]`,
			wantMsg: "input JSON is missing the required columns: tableName, data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := writeSource(t, tt.content)

			coll, err := u.Unpack()
			require.Error(t, err)
			assert.True(t, errors.IsMalformedSourceError(err))
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Nil(t, coll)
			assert.False(t, u.Unpacked())
		})
	}
}

func TestUnpack_MalformedDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid JSON", content: `{"tableName": `},
		{name: "top level object", content: `{"tableName":"T1","data":[]}`},
		{name: "empty array", content: `[]`},
		{name: "scalar record", content: `[42]`},
		{name: "numeric tableName", content: `[{"tableName":7,"data":[]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := writeSource(t, tt.content)

			coll, err := u.Unpack()
			require.Error(t, err)
			assert.True(t, errors.IsMalformedSourceError(err))
			assert.Nil(t, coll)
			assert.False(t, u.Unpacked())
		})
	}
}

func TestUnpack_SkipsUnbuildableTables(t *testing.T) {
	u := writeSource(t, `[
		{"tableName":"Good","data":[{"a":1}]},
		{"tableName":"Bad","data":"not rows"},
		{"tableName":"Also Good","data":[{"b":2}]}
	]`)

	coll, err := u.Unpack()
	require.NoError(t, err)

	assert.Equal(t, []string{"Good", "Also Good"}, coll.Keys())
	assert.Equal(t, []string{"Bad"}, u.Skipped())
	assert.True(t, u.Unpacked())
}

func TestUnpack_AllTablesFail(t *testing.T) {
	u := writeSource(t, `[
		{"tableName":"Bad","data":"not rows"},
		{"tableName":"Worse","data":null}
	]`)

	coll, err := u.Unpack()
	require.Error(t, err)
	assert.Nil(t, coll)
	assert.False(t, u.Unpacked())
	assert.Nil(t, u.Collection())
	assert.Equal(t, []string{"Bad", "Worse"}, u.Skipped())
}

func TestUnpack_DuplicateNamesKeepNewestData(t *testing.T) {
	u := writeSource(t, `[
		{"tableName":"T1","data":[{"a":1}]},
		{"tableName":"T2","data":[{"b":2}]},
		{"tableName":"T1","data":[{"a":10},{"a":11}]}
	]`)

	coll, err := u.Unpack()
	require.NoError(t, err)

	// The duplicate keeps its original position but the newest data wins.
	assert.Equal(t, []string{"T1", "T2"}, coll.Keys())
	t1, ok := coll.Get("T1")
	require.True(t, ok)
	assert.Equal(t, 2, t1.RowCount())
	assert.Equal(t, json.Number("10"), t1.Rows()[0]["a"])
}

func TestUnpack_ResetsStateBetweenCalls(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("fda.json", `[{"tableName":"T1","data":[{"a":1}]}]`)

	u := NewUnpacker(env.Path("fda.json"))
	_, err := u.Unpack()
	require.NoError(t, err)
	require.True(t, u.Unpacked())

	env.Remove("fda.json")

	_, err = u.Unpack()
	require.Error(t, err)
	assert.False(t, u.Unpacked())
	assert.Nil(t, u.Collection())
}
