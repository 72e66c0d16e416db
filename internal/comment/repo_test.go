package comment

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangavault/internal/manga"
	"mangavault/pkg/apierr"
	"mangavault/pkg/database"
)

type fixture struct {
	db      *sql.DB
	mangaID string
	alice   string
	bob     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	addUser := func(name string) string {
		id := uuid.NewString()
		_, err := db.Exec(`INSERT INTO users (id, username, email, password_hash, role)
			VALUES (?, ?, ?, 'x', 'user')`, id, name, name+"@test")
		require.NoError(t, err)
		return id
	}
	alice := addUser("alice")
	bob := addUser("bob")

	m, err := manga.Create(context.Background(), db, manga.CreateInput{Title: "Fixture", OwnerID: alice})
	require.NoError(t, err)
	return fixture{db: db, mangaID: m.ID, alice: alice, bob: bob}
}

func (f fixture) comment(t *testing.T, userID, parentID, content string) string {
	t.Helper()
	c, err := Create(context.Background(), f.db, CreateInput{
		MangaID: f.mangaID, UserID: userID, ParentID: parentID, Content: content,
	})
	require.NoError(t, err)
	return c.ID
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.comment(t, f.alice, "", "  great start  ")
	c, err := Get(ctx, f.db, id)
	require.NoError(t, err)
	assert.Equal(t, "great start", c.Content)
	assert.Empty(t, c.ParentID)
	assert.Equal(t, 0, c.Replies)
	require.NotNil(t, c.User)
	assert.Equal(t, "alice", c.User.Username)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []CreateInput{
		{MangaID: f.mangaID, UserID: f.alice, Content: "   "},
		{MangaID: f.mangaID, UserID: f.alice, Content: strings.Repeat("a", MaxContentLength+1)},
	}
	for _, in := range cases {
		_, err := Create(ctx, f.db, in)
		assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	}
}

func TestReplyLinkageDerivedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.comment(t, f.alice, "", "parent")
	reply := f.comment(t, f.bob, parent, "reply")

	replies, err := ListReplies(ctx, f.db, parent)
	require.NoError(t, err)
	require.Len(t, replies, 1, "reply appears exactly once under its parent")
	assert.Equal(t, reply, replies[0].ID)

	p, err := Get(ctx, f.db, parent)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Replies, "reply count derived from the same edge")

	// Replies are not top-level entries.
	top, pg, err := ListByManga(ctx, f.db, f.mangaID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, pg.Total)
	require.Len(t, top, 1)
	assert.Equal(t, parent, top[0].ID)
}

func TestReplyDepthLimitedToOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.comment(t, f.alice, "", "parent")
	reply := f.comment(t, f.bob, parent, "reply")

	_, err := Create(ctx, f.db, CreateInput{
		MangaID: f.mangaID, UserID: f.alice, ParentID: reply, Content: "reply to reply",
	})
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
}

func TestReplyParentMustShareManga(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := manga.Create(ctx, f.db, manga.CreateInput{Title: "Other", OwnerID: f.alice})
	require.NoError(t, err)
	parent := f.comment(t, f.alice, "", "parent")

	_, err = Create(ctx, f.db, CreateInput{
		MangaID: other.ID, UserID: f.bob, ParentID: parent, Content: "cross-manga reply",
	})
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))

	_, err = Create(ctx, f.db, CreateInput{
		MangaID: f.mangaID, UserID: f.bob, ParentID: "missing", Content: "orphan",
	})
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
}

func TestEditOnlyByAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.comment(t, f.alice, "", "original")

	err := Edit(ctx, f.db, id, f.bob, "hijacked")
	assert.Equal(t, apierr.KindForbidden, apierr.KindOf(err))

	require.NoError(t, Edit(ctx, f.db, id, f.alice, "revised"))
	c, err := Get(ctx, f.db, id)
	require.NoError(t, err)
	assert.Equal(t, "revised", c.Content)
	assert.True(t, c.Edited)
}

func TestSoftDeleteKeepsReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.comment(t, f.alice, "", "parent")
	reply := f.comment(t, f.bob, parent, "reply")

	require.NoError(t, SoftDelete(ctx, f.db, parent))

	_, err := Get(ctx, f.db, parent)
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))

	r, err := Get(ctx, f.db, reply)
	require.NoError(t, err)
	assert.Equal(t, parent, r.ParentID, "reply keeps its parent reference")

	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(SoftDelete(ctx, f.db, parent)))
}

func TestReactToggleAndSwitch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.comment(t, f.alice, "", "react to me")

	kind, err := React(ctx, f.db, id, f.bob, ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, ReactionLike, kind)

	c, err := Get(ctx, f.db, id)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Likes)
	assert.Equal(t, 0, c.Dislikes)

	// Switching replaces, never double-counts.
	kind, err = React(ctx, f.db, id, f.bob, ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, ReactionDislike, kind)

	c, err = Get(ctx, f.db, id)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Likes)
	assert.Equal(t, 1, c.Dislikes)

	// Same kind again removes it.
	kind, err = React(ctx, f.db, id, f.bob, ReactionDislike)
	require.NoError(t, err)
	assert.Empty(t, kind)

	c, err = Get(ctx, f.db, id)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Likes)
	assert.Equal(t, 0, c.Dislikes)

	_, err = React(ctx, f.db, id, f.bob, "love")
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
}

func TestListByMangaNewestFirstPaged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = f.comment(t, f.alice, "", "c")
		time.Sleep(2 * time.Millisecond)
	}

	page1, pg, err := ListByManga(ctx, f.db, f.mangaID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, pg.Total)
	assert.True(t, pg.HasNextPage)
	require.Len(t, page1, 3)
	assert.Equal(t, ids[4], page1[0].ID, "newest first")

	page2, pg, err := ListByManga(ctx, f.db, f.mangaID, 2, 3)
	require.NoError(t, err)
	assert.False(t, pg.HasNextPage)
	require.Len(t, page2, 2)
	assert.Equal(t, ids[0], page2[1].ID)
}
