package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiresInput(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		modes []string
		want  bool
	}{
		{"no arguments", nil, nil, false},
		{"inputs without modes", []string{"int4"}, nil, true},
		{"all out", []string{"int4", "text"}, []string{"o", "o"}, false},
		{"table returns", []string{"int4"}, []string{"t"}, false},
		{"in then out", []string{"int4", "text"}, []string{"i", "o"}, true},
		{"out then inout", []string{"int4", "text"}, []string{"o", "b"}, true},
		{"variadic", []string{"int4[]"}, []string{"v"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresInput(tt.types, tt.modes))
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	pid := int32(42)
	orig := &Session{
		ID:             "tx",
		Target:         &DirectTarget{OID: 1, ArgTypes: []string{"int4"}},
		ConnectionRefs: []string{"c1"},
		Arguments:      []Argument{{Value: "1"}},
	}
	c := orig.Clone()
	c.Target.(*DirectTarget).ArgTypes[0] = "text"
	c.ConnectionRefs[0] = "c2"
	c.Arguments[0].Value = "2"

	assert.Equal(t, "int4", orig.Target.(*DirectTarget).ArgTypes[0])
	assert.Equal(t, "c1", orig.ConnectionRefs[0])
	assert.Equal(t, "1", orig.Arguments[0].Value)

	ind := &Session{ID: "tx2", Target: &IndirectTarget{}, RunConfig: &RunConfig{DurationSeconds: 5, TargetPID: &pid}}
	ic := ind.Clone()
	*ic.RunConfig.TargetPID = 7
	assert.Equal(t, int32(42), *ind.RunConfig.TargetPID)
}

func TestSessionJSON_PreservesTargetVariant(t *testing.T) {
	pid := int32(1234)
	direct := &Session{
		ID: "d",
		Target: &DirectTarget{
			OID: 100, Schema: "public", Name: "calc", IsFunction: true,
			ArgTypes: []string{"int4"}, ArgModes: []string{"i"}, RequiresInput: true,
		},
		ReportConfig: ReportConfig{Name: "calc"},
	}
	indirect := &Session{
		ID:        "i",
		Target:    &IndirectTarget{},
		RunConfig: &RunConfig{DurationSeconds: 10, SampleIntervalMS: 10, TargetPID: &pid},
	}

	for _, s := range []*Session{direct, indirect, {ID: "empty"}} {
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var got Session
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, s.Target, got.Target)
		assert.Equal(t, s.RunConfig, got.RunConfig)
	}
}

func TestSessionJSON_RejectsUnknownKind(t *testing.T) {
	var s Session
	err := json.Unmarshal([]byte(`{"id":"x","target_kind":"sideways"}`), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")

	err = json.Unmarshal([]byte(`{"id":"x","target_kind":"direct"}`), &s)
	require.Error(t, err)
}

func TestMemoryStore_DeleteReturnsRemovedSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.Insert(ctx, &Session{ID: "a"})
	require.NoError(t, err)
	require.True(t, ok)
	_, err = store.Update(ctx, "a", func(s *Session) error {
		s.ConnectionRefs = append(s.ConnectionRefs, "c1")
		return nil
	})
	require.NoError(t, err)

	removed, err := store.Delete(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, []string{"c1"}, removed.ConnectionRefs)

	removed, err = store.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, removed)
}
