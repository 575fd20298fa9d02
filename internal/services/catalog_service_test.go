package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"libhub/internal/models"
	"libhub/internal/registry"
)

func requireFields(t *testing.T, err error, fields ...string) {
	t.Helper()
	verr, ok := IsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	for _, f := range fields {
		assert.Contains(t, verr.Fields, f)
	}
}

func TestCreateLanguage_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.catalog.CreateLanguage(ctx, LanguageInput{Name: " ", CharsCode: "EN"})
	requireFields(t, err, "name")

	_, err = f.catalog.CreateLanguage(ctx, LanguageInput{Name: "English", CharsCode: "en"})
	requireFields(t, err, "chars_code")

	langs, err := f.catalog.ListLanguages(ctx)
	require.NoError(t, err)
	assert.Empty(t, langs)
}

func TestCreateLanguage_TrimsAndEnforcesUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	lang, err := f.catalog.CreateLanguage(ctx, LanguageInput{Name: "  English ", CharsCode: " EN"})
	require.NoError(t, err)
	assert.Equal(t, "English", lang.Name)
	assert.Equal(t, "EN", lang.CharsCode)

	_, err = f.catalog.CreateLanguage(ctx, LanguageInput{Name: "English", CharsCode: "ENG"})
	requireFields(t, err, "name")

	// deleted rows still hold their names
	_, err = f.catalog.SoftDelete(ctx, registry.KindLanguages, []uuid.UUID{lang.ID})
	require.NoError(t, err)
	_, err = f.catalog.CreateLanguage(ctx, LanguageInput{Name: "Englisch", CharsCode: "EN"})
	requireFields(t, err, "chars_code")
}

func TestUpdateLanguage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	english := f.language(t, "English", "EN")
	f.language(t, "French", "FR")

	updated, err := f.catalog.UpdateLanguage(ctx, english.ID, LanguageInput{Name: "British English", CharsCode: "EN"})
	require.NoError(t, err)
	assert.Equal(t, english.ID, updated.ID)
	assert.Equal(t, "British English", updated.Name)

	_, err = f.catalog.UpdateLanguage(ctx, english.ID, LanguageInput{Name: "French", CharsCode: "EN"})
	requireFields(t, err, "name")

	_, err = f.catalog.UpdateLanguage(ctx, uuid.New(), LanguageInput{Name: "German", CharsCode: "DE"})
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestCreateAuthor_OptionalMiddleName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	blank := "   "
	a, err := f.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Frank", LastName: "Herbert", MiddleName: &blank})
	require.NoError(t, err)
	assert.Nil(t, a.MiddleName)

	middle := " Patrick "
	a, err = f.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "Frank", LastName: "Herbert", MiddleName: &middle})
	require.NoError(t, err)
	require.NotNil(t, a.MiddleName)
	assert.Equal(t, "Patrick", *a.MiddleName)

	_, err = f.catalog.CreateAuthor(ctx, AuthorInput{FirstName: "F", LastName: "Herbert1"})
	requireFields(t, err, "first_name", "last_name")
}

func TestCreatePublisher_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.catalog.CreatePublisher(ctx, PublisherInput{Name: "Chilton", Address: "1 Main St., Radnor-PA"})
	require.NoError(t, err)
	assert.Equal(t, "Chilton", p.Name)

	_, err = f.catalog.CreatePublisher(ctx, PublisherInput{Name: "Ace", Address: "Main #1"})
	requireFields(t, err, "address")
}

func TestBulkSoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	drama := f.genre(t, "Drama")
	poetry := f.genre(t, "Poetry")

	n, err := f.catalog.SoftDelete(ctx, registry.KindGenres, []uuid.UUID{drama.ID, uuid.New(), drama.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	active, err := f.catalog.ListGenres(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, poetry.ID, active[0].ID)

	_, err = f.catalog.GetGenre(ctx, drama.ID)
	assert.ErrorIs(t, err, ErrEntityNotFound)

	n, err = f.catalog.Restore(ctx, registry.KindGenres, []uuid.UUID{drama.ID, poetry.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := f.catalog.GetGenre(ctx, drama.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)
}

func TestBulkSoftDelete_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.catalog.SoftDelete(ctx, registry.KindGenres, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = f.catalog.Restore(ctx, registry.KindGenres, nil)
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = f.catalog.SoftDelete(ctx, registry.KindUsers, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrNotDeletable)

	_, err = f.catalog.SoftDelete(ctx, registry.Kind("shelves"), []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSoftDelete_ListActiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	names := []string{"Drama", "Poetry", "Satire", "Horror", "Mystery", "Romance"}
	ids := make([]uuid.UUID, len(names))
	for i, name := range names {
		ids[i] = f.genre(t, name).ID
	}

	activeIDs := func(t *rapid.T) map[uuid.UUID]bool {
		genres, err := f.catalog.ListGenres(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		out := map[uuid.UUID]bool{}
		for _, g := range genres {
			out[g.ID] = true
		}
		return out
	}

	rapid.Check(t, func(t *rapid.T) {
		picked := rapid.SliceOfNDistinct(rapid.SampledFrom(ids), 1, len(ids), rapid.ID[uuid.UUID]).Draw(t, "picked")

		if _, err := f.catalog.SoftDelete(ctx, registry.KindGenres, picked); err != nil {
			t.Fatalf("soft delete: %v", err)
		}
		active := activeIDs(t)
		for _, id := range picked {
			if active[id] {
				t.Fatalf("deleted genre %s still listed", id)
			}
		}
		if len(active) != len(ids)-len(picked) {
			t.Fatalf("got %d active genres, want %d", len(active), len(ids)-len(picked))
		}

		if _, err := f.catalog.Restore(ctx, registry.KindGenres, picked); err != nil {
			t.Fatalf("restore: %v", err)
		}
		if got := len(activeIDs(t)); got != len(ids) {
			t.Fatalf("got %d active genres after restore, want %d", got, len(ids))
		}
	})
}

func TestCreateBook_LinksAndReferenceChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	english := f.language(t, "English", "EN")
	scifi := f.genre(t, "Science Fiction")
	herbert := f.author(t, "Frank", "Herbert")

	book := f.book(t, "Dune", english, []uuid.UUID{scifi.ID}, []uuid.UUID{herbert.ID, herbert.ID})
	require.NotNil(t, book.Language)
	assert.Equal(t, "English", book.Language.Name)
	require.Len(t, book.Genres, 1)
	require.Len(t, book.Authors, 1)
	assert.Equal(t, "Frank Herbert", book.Authors[0].FullName())

	_, err := f.catalog.SoftDelete(ctx, registry.KindGenres, []uuid.UUID{scifi.ID})
	require.NoError(t, err)

	_, err = f.catalog.CreateBook(ctx, BookInput{
		Name:            "Children of Dune",
		PublicationYear: 1976,
		LanguageID:      uuid.New(),
		CoverURL:        "https://covers.example.com/children.jpg",
		GenreIDs:        []uuid.UUID{scifi.ID},
	})
	requireFields(t, err, "language_id", "genre_ids")

	_, err = f.catalog.CreateBook(ctx, BookInput{Name: "Dune", LanguageID: english.ID, CoverURL: "dune.jpg"})
	requireFields(t, err, "publication_year", "cover_url")

	// deleting a genre does not unlink it from existing books
	got, err := f.catalog.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, got.Genres, 1)
	assert.True(t, got.Genres[0].IsDeleted)
}

func TestUpdateBook_ReplacesLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	english := f.language(t, "English", "EN")
	scifi := f.genre(t, "Science Fiction")
	drama := f.genre(t, "Drama")
	herbert := f.author(t, "Frank", "Herbert")

	book := f.book(t, "Dune", english, []uuid.UUID{scifi.ID}, []uuid.UUID{herbert.ID})

	updated, err := f.catalog.UpdateBook(ctx, book.ID, BookInput{
		Name:            "Dune Messiah",
		PublicationYear: 1969,
		LanguageID:      english.ID,
		CoverURL:        book.CoverURL,
		GenreIDs:        []uuid.UUID{drama.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Name)
	assert.Equal(t, 1969, updated.PublicationYear)
	require.Len(t, updated.Genres, 1)
	assert.Equal(t, drama.ID, updated.Genres[0].ID)
	assert.Empty(t, updated.Authors)

	_, err = f.catalog.UpdateBook(ctx, uuid.New(), BookInput{
		Name: "Missing", PublicationYear: 1, LanguageID: english.ID, CoverURL: book.CoverURL,
	})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestListBooks_Filters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	english := f.language(t, "English", "EN")
	french := f.language(t, "French", "FR")
	scifi := f.genre(t, "Science Fiction")
	drama := f.genre(t, "Drama")
	herbert := f.author(t, "Frank", "Herbert")
	verne := f.author(t, "Jules", "Verne")

	dune := f.book(t, "Dune", english, []uuid.UUID{scifi.ID}, []uuid.UUID{herbert.ID})
	messiah := f.book(t, "Dune Messiah", english, []uuid.UUID{scifi.ID, drama.ID}, []uuid.UUID{herbert.ID})
	nautilus := f.book(t, "Vingt mille lieues", french, []uuid.UUID{scifi.ID}, []uuid.UUID{verne.ID})
	hidden := f.book(t, "Dune Deleted", english, nil, nil)
	_, err := f.catalog.SoftDelete(ctx, registry.KindBooks, []uuid.UUID{hidden.ID})
	require.NoError(t, err)

	ids := func(books []models.Book) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(books))
		for _, b := range books {
			out = append(out, b.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter BookFilter
		want   []uuid.UUID
	}{
		{"all active", BookFilter{}, []uuid.UUID{dune.ID, messiah.ID, nautilus.ID}},
		{"by genre", BookFilter{GenreID: drama.ID}, []uuid.UUID{messiah.ID}},
		{"by author", BookFilter{AuthorID: verne.ID}, []uuid.UUID{nautilus.ID}},
		{"by language", BookFilter{LanguageID: english.ID}, []uuid.UUID{dune.ID, messiah.ID}},
		{"title ignores case", BookFilter{Title: "dUNE"}, []uuid.UUID{dune.ID, messiah.ID}},
		{"combined", BookFilter{GenreID: scifi.ID, Title: "messiah"}, []uuid.UUID{messiah.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := f.catalog.ListBooks(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(books))
		})
	}
}
