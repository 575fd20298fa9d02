package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libhub/internal/models"
)

func TestDefault_Capabilities(t *testing.T) {
	r := Default()

	assert.Equal(t,
		[]Kind{KindAuthors, KindBooks, KindGenres, KindLanguages, KindPublishers},
		r.DeletableKinds(),
	)

	for _, k := range []Kind{KindUsers, KindLoans} {
		s, ok := r.Lookup(k)
		require.True(t, ok, k)
		assert.False(t, s.Deletable(), k)
		assert.Equal(t, "non-deletable", s.Capability.String())
	}
}

func TestDefault_ModelsMatchKinds(t *testing.T) {
	r := Default()

	s, ok := r.Lookup(KindLanguages)
	require.True(t, ok)
	assert.IsType(t, &models.Language{}, s.NewModel())
	assert.Equal(t, []string{"name", "chars_code"}, s.UniqueFields)

	s, ok = r.Lookup(KindLoans)
	require.True(t, ok)
	assert.IsType(t, &models.Loan{}, s.NewModel())

	_, ok = r.Lookup(Kind("shelves"))
	assert.False(t, ok)
}

func TestDefault_UsersNeverExposePassword(t *testing.T) {
	s, _ := Default().Lookup(KindUsers)
	assert.NotContains(t, s.DisplayFields, "password_hash")
}

func TestNew_RejectsBadTables(t *testing.T) {
	model := func() any { return &models.Genre{} }

	_, err := New(
		Spec{Kind: KindGenres, NewModel: model},
		Spec{Kind: KindGenres, NewModel: model},
	)
	assert.ErrorContains(t, err, "registered twice")

	_, err = New(Spec{Kind: KindGenres})
	assert.ErrorContains(t, err, "no model constructor")
}
