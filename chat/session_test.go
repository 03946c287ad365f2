package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xiaot623/chatd/domain"
	"github.com/xiaot623/chatd/llm"
)

func TestResolveChatCreatesWhenIDMissing(t *testing.T) {
	svc, _ := newTestService(t, &llm.Mock{})
	ctx := context.Background()

	chat, err := svc.ResolveChat(ctx, "", "llama3.2:3b")
	assert.NoError(t, err)
	assert.NotEmpty(t, chat.ID)
	assert.True(t, chat.Active)
	assert.Equal(t, 0, chat.MessageCount)
	assert.Equal(t, "New chat", chat.Title)
}

func TestResolveChatReturnsExisting(t *testing.T) {
	svc, _ := newTestService(t, &llm.Mock{})
	ctx := context.Background()

	created, err := svc.CreateChat(ctx, "llama3.2:3b")
	assert.NoError(t, err)

	resolved, err := svc.ResolveChat(ctx, created.ID, "other-model")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
	// The stored model wins over the one supplied with the request.
	assert.Equal(t, "llama3.2:3b", resolved.ModelName)
}

func TestResolveChatMintsFreshIDForUnknown(t *testing.T) {
	svc, _ := newTestService(t, &llm.Mock{})
	ctx := context.Background()

	chat, err := svc.ResolveChat(ctx, "never-seen", "llama3.2:3b")
	assert.NoError(t, err)
	assert.NotEqual(t, "never-seen", chat.ID)
}

func TestCreateChatFallsBackToDefaultModel(t *testing.T) {
	svc, _ := newTestService(t, &llm.Mock{})

	chat, err := svc.CreateChat(context.Background(), "")
	assert.NoError(t, err)
	assert.Equal(t, "llama3.2:3b", chat.ModelName)
}

func TestRenameChatRejectsEmptyTitle(t *testing.T) {
	svc, _ := newTestService(t, &llm.Mock{})
	ctx := context.Background()

	chat, err := svc.CreateChat(ctx, "m")
	assert.NoError(t, err)

	_, err = svc.RenameChat(ctx, chat.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	renamed, err := svc.RenameChat(ctx, chat.ID, "Homework help")
	assert.NoError(t, err)
	assert.Equal(t, "Homework help", renamed.Title)
}

func TestArchiveChatKeepsTurnsIntact(t *testing.T) {
	svc, st := newTestService(t, &llm.Mock{})
	ctx := context.Background()

	chat, err := svc.CreateChat(ctx, "m")
	assert.NoError(t, err)
	_, err = svc.appendTurn(ctx, chat.ID, domain.RoleUser, "kept", nil)
	assert.NoError(t, err)

	assert.NoError(t, svc.ArchiveChat(ctx, chat.ID))

	got, err := st.GetChat(ctx, chat.ID)
	assert.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, 1, got.MessageCount)

	page, err := st.GetChatMessages(ctx, chat.ID, 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, "kept", page.Content[0].Content)
}

func TestDeleteChatRemovesMessagesAndBlobs(t *testing.T) {
	svc, st := newTestService(t, &llm.Mock{})
	ctx := context.Background()

	chat, err := svc.CreateChat(ctx, "m")
	assert.NoError(t, err)
	msg, err := svc.appendTurn(ctx, chat.ID, domain.RoleUser, "with file", []domain.Upload{
		{Filename: "img.png", ContentType: "image/png", Data: []byte{0xff}},
	})
	assert.NoError(t, err)
	ref := msg.Attachments[0].DataRef

	assert.NoError(t, svc.DeleteChat(ctx, chat.ID))

	got, err := st.GetChat(ctx, chat.ID)
	assert.NoError(t, err)
	assert.Nil(t, got)

	page, err := st.GetChatMessages(ctx, chat.ID, 0, 10)
	assert.NoError(t, err)
	assert.Empty(t, page.Content)

	_, err = svc.files.Load(ref)
	assert.Error(t, err)
}
