package service

import (
	"context"
	"testing"

	"CollabChatAPI/internal/config"
	"CollabChatAPI/internal/domain"
	"CollabChatAPI/internal/helper"
	"CollabChatAPI/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type conversationFixture struct {
	svc   *ConversationService
	users *memoryUserRepo
	convs *memoryConversationRepo
	msgs  *memoryMessageRepo
}

func newConversationFixture() *conversationFixture {
	users := newMemoryUserRepo()
	convs := newMemoryConversationRepo()
	msgs := newMemoryMessageRepo(convs)

	return &conversationFixture{
		svc:   NewConversationService(convs, msgs, users, testConfig(), config.NewValidator()),
		users: users,
		convs: convs,
		msgs:  msgs,
	}
}

func (f *conversationFixture) addUser(tenantID uuid.UUID) *model.UserDTO {
	principal := testPrincipal(tenantID)
	f.users.add(domain.User{
		ID:        principal.ID,
		TenantID:  tenantID,
		FirstName: "Test",
		LastName:  "User",
		Email:     principal.ID.String() + "@example.com",
		IsActive:  true,
	})
	return principal
}

func assertAppErrorCode(t *testing.T, err error, code int) {
	t.Helper()
	appErr, ok := err.(*helper.AppError)
	if assert.True(t, ok, "expected AppError, got %v", err) {
		assert.Equal(t, code, appErr.Code)
	}
}

func TestCreateDirectConversation(t *testing.T) {
	tenantID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)
		bob := f.addUser(tenantID)

		resp, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type:          "direct",
			ParticipantID: &bob.ID,
		})

		assert.NoError(t, err)
		assert.Equal(t, "direct", resp.Type)
		assert.Len(t, resp.Participants, 2)
	})

	t.Run("Idempotent Per Pair", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)
		bob := f.addUser(tenantID)

		first, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type:          "direct",
			ParticipantID: &bob.ID,
		})
		assert.NoError(t, err)

		// The other side of the pair asks for the conversation too.
		second, err := f.svc.Create(context.Background(), bob, model.CreateConversationRequest{
			Type:          "direct",
			ParticipantID: &alice.ID,
		})
		assert.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("With Self", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)

		_, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type:          "direct",
			ParticipantID: &alice.ID,
		})
		assertAppErrorCode(t, err, 400)
	})

	t.Run("Cross Tenant Participant", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)
		stranger := f.addUser(uuid.New())

		_, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type:          "direct",
			ParticipantID: &stranger.ID,
		})
		assertAppErrorCode(t, err, 400)
	})

	t.Run("Missing Participant", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)

		_, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type: "direct",
		})
		assertAppErrorCode(t, err, 400)
	})
}

// raceConversationRepo makes the initial existence check miss so the create
// path runs into the duplicate error, as two racing requests would.
type raceConversationRepo struct {
	*memoryConversationRepo
	misses int
}

func (r *raceConversationRepo) FindDirect(ctx context.Context, tenantID uuid.UUID, directKey string) (*domain.Conversation, error) {
	if r.misses > 0 {
		r.misses--
		return nil, nil
	}
	return r.memoryConversationRepo.FindDirect(ctx, tenantID, directKey)
}

func TestCreateDirectConversationConflict(t *testing.T) {
	tenantID := uuid.New()
	f := newConversationFixture()
	alice := f.addUser(tenantID)
	bob := f.addUser(tenantID)

	first, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
		Type:          "direct",
		ParticipantID: &bob.ID,
	})
	assert.NoError(t, err)

	racing := NewConversationService(
		&raceConversationRepo{memoryConversationRepo: f.convs, misses: 1},
		f.msgs, f.users, testConfig(), config.NewValidator(),
	)

	second, err := racing.Create(context.Background(), bob, model.CreateConversationRequest{
		Type:          "direct",
		ParticipantID: &alice.ID,
	})
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateGroupConversation(t *testing.T) {
	tenantID := uuid.New()

	t.Run("Creator Becomes Admin", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)
		bob := f.addUser(tenantID)

		resp, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type:           "group",
			Name:           "Design team",
			ParticipantIDs: []uuid.UUID{bob.ID},
		})

		assert.NoError(t, err)
		assert.Len(t, resp.Participants, 2)
		for _, p := range resp.Participants {
			if p.UserID == alice.ID {
				assert.Equal(t, "admin", p.Role)
			} else {
				assert.Equal(t, "member", p.Role)
			}
		}
	})

	t.Run("Missing Name", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)

		_, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type: "group",
		})
		assertAppErrorCode(t, err, 400)
	})

	t.Run("Unknown Participant", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)
		ghost := uuid.New()

		_, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type:           "group",
			Name:           "Ghosts",
			ParticipantIDs: []uuid.UUID{ghost},
		})
		assertAppErrorCode(t, err, 400)
	})

	t.Run("Invalid Type", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)

		_, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type: "broadcast",
			Name: "Nope",
		})
		assertAppErrorCode(t, err, 400)
	})
}

func TestJoinChannel(t *testing.T) {
	tenantID := uuid.New()

	setup := func(isPublic bool) (*conversationFixture, *model.UserDTO, uuid.UUID) {
		f := newConversationFixture()
		owner := f.addUser(tenantID)

		public := isPublic
		resp, err := f.svc.Create(context.Background(), owner, model.CreateConversationRequest{
			Type:     "channel",
			Name:     "general",
			IsPublic: &public,
		})
		if err != nil {
			t.Fatal(err)
		}
		return f, owner, resp.ID
	}

	t.Run("Public Channel", func(t *testing.T) {
		f, _, channelID := setup(true)
		joiner := f.addUser(tenantID)

		resp, err := f.svc.JoinChannel(context.Background(), joiner, channelID)
		assert.NoError(t, err)
		assert.Len(t, resp.Participants, 2)

		// Joining again is a no-op.
		resp, err = f.svc.JoinChannel(context.Background(), joiner, channelID)
		assert.NoError(t, err)
		assert.Len(t, resp.Participants, 2)
	})

	t.Run("Private Channel Looks Absent", func(t *testing.T) {
		f, _, channelID := setup(false)
		joiner := f.addUser(tenantID)

		_, err := f.svc.JoinChannel(context.Background(), joiner, channelID)
		assertAppErrorCode(t, err, 404)
	})

	t.Run("Cross Tenant Looks Absent", func(t *testing.T) {
		f, _, channelID := setup(true)
		outsider := f.addUser(uuid.New())

		_, err := f.svc.JoinChannel(context.Background(), outsider, channelID)
		assertAppErrorCode(t, err, 404)
	})
}

func TestParticipantManagement(t *testing.T) {
	tenantID := uuid.New()

	setup := func() (*conversationFixture, *model.UserDTO, *model.UserDTO, uuid.UUID) {
		f := newConversationFixture()
		admin := f.addUser(tenantID)
		member := f.addUser(tenantID)

		resp, err := f.svc.Create(context.Background(), admin, model.CreateConversationRequest{
			Type:           "group",
			Name:           "Core",
			ParticipantIDs: []uuid.UUID{member.ID},
		})
		if err != nil {
			t.Fatal(err)
		}
		return f, admin, member, resp.ID
	}

	t.Run("Admin Adds Participant", func(t *testing.T) {
		f, admin, _, convID := setup()
		carol := f.addUser(tenantID)

		err := f.svc.AddParticipant(context.Background(), admin, convID, model.AddParticipantRequest{UserID: carol.ID})
		assert.NoError(t, err)

		conv, _ := f.convs.GetByID(context.Background(), tenantID, convID)
		assert.True(t, conv.HasParticipant(carol.ID))
	})

	t.Run("Member Cannot Add", func(t *testing.T) {
		f, _, member, convID := setup()
		carol := f.addUser(tenantID)

		err := f.svc.AddParticipant(context.Background(), member, convID, model.AddParticipantRequest{UserID: carol.ID})
		assertAppErrorCode(t, err, 403)
	})

	t.Run("Member Leaves", func(t *testing.T) {
		f, _, member, convID := setup()

		err := f.svc.RemoveParticipant(context.Background(), member, convID, member.ID)
		assert.NoError(t, err)

		conv, _ := f.convs.GetByID(context.Background(), tenantID, convID)
		assert.False(t, conv.HasParticipant(member.ID))
	})

	t.Run("Member Cannot Kick", func(t *testing.T) {
		f, admin, member, convID := setup()

		err := f.svc.RemoveParticipant(context.Background(), member, convID, admin.ID)
		assertAppErrorCode(t, err, 403)
	})

	t.Run("Non Participant Forbidden", func(t *testing.T) {
		f, _, _, convID := setup()
		outsider := f.addUser(tenantID)

		err := f.svc.RemoveParticipant(context.Background(), outsider, convID, outsider.ID)
		assertAppErrorCode(t, err, 403)
	})
}

func TestDeleteConversation(t *testing.T) {
	tenantID := uuid.New()

	setup := func() (*conversationFixture, *model.UserDTO, *model.UserDTO, uuid.UUID) {
		f := newConversationFixture()
		admin := f.addUser(tenantID)
		member := f.addUser(tenantID)

		resp, err := f.svc.Create(context.Background(), admin, model.CreateConversationRequest{
			Type:           "group",
			Name:           "Core",
			ParticipantIDs: []uuid.UUID{member.ID},
		})
		if err != nil {
			t.Fatal(err)
		}
		return f, admin, member, resp.ID
	}

	t.Run("Admin Deletes", func(t *testing.T) {
		f, admin, _, convID := setup()

		err := f.svc.Deactivate(context.Background(), admin, convID)
		assert.NoError(t, err)

		list, err := f.svc.List(context.Background(), admin)
		assert.NoError(t, err)
		assert.Empty(t, list)

		carol := f.addUser(tenantID)
		err = f.svc.AddParticipant(context.Background(), admin, convID, model.AddParticipantRequest{UserID: carol.ID})
		assertAppErrorCode(t, err, 404)
	})

	t.Run("Member Cannot Delete", func(t *testing.T) {
		f, _, member, convID := setup()

		err := f.svc.Deactivate(context.Background(), member, convID)
		assertAppErrorCode(t, err, 403)
	})

	t.Run("Direct Cannot Be Deleted", func(t *testing.T) {
		f := newConversationFixture()
		alice := f.addUser(tenantID)
		bob := f.addUser(tenantID)

		resp, err := f.svc.Create(context.Background(), alice, model.CreateConversationRequest{
			Type:          "direct",
			ParticipantID: &bob.ID,
		})
		assert.NoError(t, err)

		err = f.svc.Deactivate(context.Background(), alice, resp.ID)
		assertAppErrorCode(t, err, 400)
	})

	t.Run("Cross Tenant Looks Absent", func(t *testing.T) {
		f, _, _, convID := setup()
		stranger := f.addUser(uuid.New())

		err := f.svc.Deactivate(context.Background(), stranger, convID)
		assertAppErrorCode(t, err, 404)
	})
}

func TestAvailableUsers(t *testing.T) {
	tenantID := uuid.New()
	f := newConversationFixture()
	alice := f.addUser(tenantID)
	f.addUser(tenantID)
	f.addUser(uuid.New())

	resp, err := f.svc.AvailableUsers(context.Background(), alice)
	assert.NoError(t, err)
	assert.Len(t, resp, 1)
}
