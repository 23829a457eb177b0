// ABOUTME: Tests for entity decoding with ordered extras and the Ref foreign key type
// ABOUTME: Verifies unknown upstream fields survive a decode/encode cycle in order

package pipedrive

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeal_PreservesExtras(t *testing.T) {
	in := `{"id":1,"title":"Big deal","zeta":true,"value":1500.5,"custom_abc":{"nested":[1,2]},"alpha":"x"}`

	var d Deal
	require.NoError(t, json.Unmarshal([]byte(in), &d))

	assert.Equal(t, int64(1), d.ID)
	assert.Equal(t, "Big deal", d.Title)
	require.NotNil(t, d.Value)
	assert.InDelta(t, 1500.5, *d.Value, 0.001)

	require.NotNil(t, d.Extra)
	var keys []string
	for pair := d.Extra.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"zeta", "custom_abc", "alpha"}, keys, "extras keep wire order")

	raw, ok := d.Attr("custom_abc")
	require.True(t, ok)
	assert.JSONEq(t, `{"nested":[1,2]}`, string(raw))

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
	assert.Equal(t,
		`{"id":1,"title":"Big deal","value":1500.5,"zeta":true,"custom_abc":{"nested":[1,2]},"alpha":"x"}`,
		string(out), "core fields first, then extras in order")
}

func TestDeal_NoExtras(t *testing.T) {
	var d Deal
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"status":"open"}`), &d))
	assert.Nil(t, d.Extra)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `{"id":3,"status":"open"}`, string(out))
}

func TestDeal_RejectsNonObject(t *testing.T) {
	var d Deal
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &d))
}

func TestRef(t *testing.T) {
	tests := []struct {
		name string
		in   string
		id   int64
	}{
		{"bare number", `7`, 7},
		{"expanded with value", `{"value":9,"name":"Acme"}`, 9},
		{"expanded with id", `{"id":11,"name":"Jo"}`, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Ref
			require.NoError(t, json.Unmarshal([]byte(tt.in), &r))
			assert.Equal(t, tt.id, r.ID)

			out, err := json.Marshal(r)
			require.NoError(t, err)
			assert.JSONEq(t, tt.in, string(out), "original representation is re-emitted")
		})
	}
}

func TestRef_NilAndConstructed(t *testing.T) {
	assert.Equal(t, int64(0), RefID(nil))

	r := NewRef(42)
	assert.Equal(t, int64(42), RefID(r))
	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, "42", string(out))
}

func TestDeal_ExpandedForeignKeys(t *testing.T) {
	in := `{"id":5,"person_id":{"value":12,"name":"Ann"},"org_id":null,"user_id":3}`

	var d Deal
	require.NoError(t, json.Unmarshal([]byte(in), &d))
	assert.Equal(t, int64(12), RefID(d.PersonID))
	assert.Nil(t, d.OrgID)
	assert.Equal(t, int64(3), RefID(d.UserID))
}

func TestPerson_ContactLists(t *testing.T) {
	in := `{"id":2,"name":"Ann","email":[{"value":"ann@example.com","primary":true,"label":"work"}],"phone":[]}`

	var p Person
	require.NoError(t, json.Unmarshal([]byte(in), &p))
	require.Len(t, p.Email, 1)
	assert.Equal(t, "ann@example.com", p.Email[0].Value)
	assert.True(t, p.Email[0].Primary)
	assert.Empty(t, p.Phone)
}

func TestSearchResults_Shapes(t *testing.T) {
	wrapped := `{"items":[{"result_score":0.9,"item":{"id":1,"type":"deal","title":"Deal A","owner":{"id":4}}}]}`

	var s SearchResults
	require.NoError(t, json.Unmarshal([]byte(wrapped), &s))
	require.Len(t, s.Items, 1)
	assert.Equal(t, "deal", s.Items[0].Item.Type)
	assert.Equal(t, "Deal A", s.Items[0].Item.Title)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, wrapped, string(out))

	var bare SearchResults
	require.NoError(t, json.Unmarshal([]byte(`[{"item":{"id":2,"type":"person","name":"Bo"}}]`), &bare))
	require.Len(t, bare.Items, 1)
	out, err = json.Marshal(bare)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"item":{"id":2,"type":"person","name":"Bo"}}]`, string(out))
}

func TestAdditionalData_KeepsUnknownKeys(t *testing.T) {
	in := `{"pagination":{"start":0,"limit":2,"more_items_in_collection":true,"next_start":2},"search_method":"search_all"}`

	var a AdditionalData
	require.NoError(t, json.Unmarshal([]byte(in), &a))
	require.NotNil(t, a.Pagination)
	assert.True(t, a.Pagination.MoreItemsInCollection)
	require.NotNil(t, a.Pagination.NextStart)
	assert.Equal(t, 2, *a.Pagination.NextStart)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}
