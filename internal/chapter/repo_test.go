package chapter

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangavault/internal/manga"
	"mangavault/pkg/apierr"
	"mangavault/pkg/database"
)

func testFixture(t *testing.T) (*sql.DB, string) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	ownerID := uuid.NewString()
	_, err = db.Exec(`INSERT INTO users (id, username, email, password_hash, role)
		VALUES (?, 'owner', 'owner@test', 'x', 'uploader')`, ownerID)
	require.NoError(t, err)

	m, err := manga.Create(context.Background(), db, manga.CreateInput{Title: "Fixture", OwnerID: ownerID})
	require.NoError(t, err)
	return db, m.ID
}

func somePages(n int) []PageInput {
	out := make([]PageInput, n)
	for i := range out {
		out[i] = PageInput{ImageURL: fmt.Sprintf("https://cdn.test/p/%d.jpg", i), Width: 800, Height: 1200}
	}
	return out
}

func TestAssembleNumbersPagesInOrder(t *testing.T) {
	db, mangaID := testFixture(t)
	ctx := context.Background()

	ch, err := Assemble(ctx, db, AssembleInput{
		MangaID:       mangaID,
		ChapterNumber: 1,
		Title:         "  First  ",
		Pages:         somePages(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "First", ch.Title)
	require.Len(t, ch.Pages, 3)
	for i, p := range ch.Pages {
		assert.Equal(t, i+1, p.PageNumber, "pages numbered 1..N in submission order")
	}
	assert.Equal(t, 3, ch.PageCount)

	// The counter increment and the insert share a transaction.
	m, err := manga.GetByID(ctx, db, mangaID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.ChaptersCount)

	got, err := Get(ctx, db, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, ch.Pages, got.Pages)
}

func TestAssembleValidation(t *testing.T) {
	db, mangaID := testFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   AssembleInput
	}{
		{"no pages", AssembleInput{MangaID: mangaID, ChapterNumber: 1}},
		{"too many pages", AssembleInput{MangaID: mangaID, ChapterNumber: 1, Pages: somePages(MaxPagesPerChapter + 1)}},
		{"bad url", AssembleInput{MangaID: mangaID, ChapterNumber: 1, Pages: []PageInput{{ImageURL: "ftp://x/y.jpg"}}}},
		{"relative url", AssembleInput{MangaID: mangaID, ChapterNumber: 1, Pages: []PageInput{{ImageURL: "/local/y.jpg"}}}},
		{"negative dims", AssembleInput{MangaID: mangaID, ChapterNumber: 1, Pages: []PageInput{{ImageURL: "https://x/y.jpg", Width: -1}}}},
		{"negative number", AssembleInput{MangaID: mangaID, ChapterNumber: -2, Pages: somePages(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(ctx, db, tc.in)
			assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
		})
	}

	// Nothing may have leaked into the counter.
	m, err := manga.GetByID(ctx, db, mangaID)
	require.NoError(t, err)
	assert.Equal(t, 0, m.ChaptersCount)
}

func TestAssembleDuplicateNumberConflicts(t *testing.T) {
	db, mangaID := testFixture(t)
	ctx := context.Background()

	_, err := Assemble(ctx, db, AssembleInput{MangaID: mangaID, ChapterNumber: 10.5, Pages: somePages(1)})
	require.NoError(t, err)

	_, err = Assemble(ctx, db, AssembleInput{MangaID: mangaID, ChapterNumber: 10.5, Pages: somePages(2)})
	assert.Equal(t, apierr.KindConflict, apierr.KindOf(err))

	// The failed attempt must not bump the counter.
	m, err := manga.GetByID(ctx, db, mangaID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.ChaptersCount)
}

func TestAssembleUnknownManga(t *testing.T) {
	db, _ := testFixture(t)
	_, err := Assemble(context.Background(), db, AssembleInput{MangaID: "missing", ChapterNumber: 1, Pages: somePages(1)})
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
}

func TestConcurrentAssemblesBothLand(t *testing.T) {
	db, mangaID := testFixture(t)
	ctx := context.Background()

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		num := float64(i + 1)
		go func() {
			_, err := Assemble(ctx, db, AssembleInput{MangaID: mangaID, ChapterNumber: num, Pages: somePages(1)})
			errs <- err
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	m, err := manga.GetByID(ctx, db, mangaID)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ChaptersCount, "both increments must be reflected")
}

func TestListByMangaOrdersByNumber(t *testing.T) {
	db, mangaID := testFixture(t)
	ctx := context.Background()

	for _, n := range []float64{3, 1, 2.5} {
		_, err := Assemble(ctx, db, AssembleInput{MangaID: mangaID, ChapterNumber: n, Pages: somePages(1)})
		require.NoError(t, err)
	}

	list, err := ListByManga(ctx, db, mangaID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []float64{1, 2.5, 3},
		[]float64{list[0].ChapterNumber, list[1].ChapterNumber, list[2].ChapterNumber})
	assert.Empty(t, list[0].Pages, "listing omits page payloads")
}

func TestGetHiddenWhenMangaDeleted(t *testing.T) {
	db, mangaID := testFixture(t)
	ctx := context.Background()

	ch, err := Assemble(ctx, db, AssembleInput{MangaID: mangaID, ChapterNumber: 1, Pages: somePages(1)})
	require.NoError(t, err)
	require.NoError(t, manga.SoftDelete(ctx, db, mangaID))

	_, err = Get(ctx, db, ch.ID)
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
}

func TestDeleteDecrementsAndDetachesComments(t *testing.T) {
	db, mangaID := testFixture(t)
	ctx := context.Background()

	ch, err := Assemble(ctx, db, AssembleInput{MangaID: mangaID, ChapterNumber: 1, Pages: somePages(2)})
	require.NoError(t, err)

	var userID string
	require.NoError(t, db.QueryRow(`SELECT id FROM users LIMIT 1`).Scan(&userID))
	commentID := uuid.NewString()
	_, err = db.Exec(`INSERT INTO comments (id, manga_id, chapter_id, user_id, content)
		VALUES (?, ?, ?, ?, 'nice chapter')`, commentID, mangaID, ch.ID, userID)
	require.NoError(t, err)

	require.NoError(t, Delete(ctx, db, ch.ID))

	_, err = Get(ctx, db, ch.ID)
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))

	m, err := manga.GetByID(ctx, db, mangaID)
	require.NoError(t, err)
	assert.Equal(t, 0, m.ChaptersCount)

	var chapterID sql.NullString
	require.NoError(t, db.QueryRow(`SELECT chapter_id FROM comments WHERE id = ?`, commentID).Scan(&chapterID))
	assert.False(t, chapterID.Valid, "comment survives without its chapter reference")

	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(Delete(ctx, db, ch.ID)))
}

func TestBumpViews(t *testing.T) {
	db, mangaID := testFixture(t)
	ctx := context.Background()

	ch, err := Assemble(ctx, db, AssembleInput{MangaID: mangaID, ChapterNumber: 1, Pages: somePages(1)})
	require.NoError(t, err)
	require.NoError(t, BumpViews(ctx, db, ch.ID))
	require.NoError(t, BumpViews(ctx, db, ch.ID))

	got, err := Get(ctx, db, ch.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Views)
}
