package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/kiroku/backend/internal/models"
	"github.com/google/uuid"
)

func TestGroupMessages(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "chat-a@test.com", "話す人", "CHATAA12")
	_, memberToken := createTestUser(t, env.db, "chat-b@test.com", "聞く人", "CHATBB12")
	_, outsiderToken := createTestUser(t, env.db, "chat-c@test.com", "他人", "CHATCC12")

	groupID := createTestGroup(t, env.app, ownerToken, "雑談部", []string{"勉強"})
	code := groupInviteCode(t, env.db, groupID)
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/groups/join", map[string]any{"code": code}, authHeaders(memberToken))
	assertStatus(t, resp, http.StatusOK)

	messagesURL := "/api/groups/" + groupID + "/messages"

	t.Run("send trims whitespace and returns the sender", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, messagesURL, map[string]any{
			"content": "  おはよう！  ",
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)

		data := body["data"].(map[string]any)
		if data["content"].(string) != "おはよう！" {
			t.Fatalf("expected trimmed content, got %q", data["content"])
		}
		if data["user"].(map[string]any)["uniqueId"].(string) != "CHATAA12" {
			t.Fatalf("expected sender identity on the message")
		}
	})

	t.Run("whitespace-only content is rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, messagesURL, map[string]any{
			"content": "   ",
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "message content is required")
	})

	t.Run("content over 1000 characters is rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, messagesURL, map[string]any{
			"content": strings.Repeat("あ", 1001),
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "message content must be at most 1000 characters")
	})

	t.Run("exactly 1000 characters is accepted", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, messagesURL, map[string]any{
			"content": strings.Repeat("あ", 1000),
		}, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusCreated)
	})

	t.Run("sending to a group you are not in is forbidden", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, messagesURL, map[string]any{
			"content": "入れて",
		}, authHeaders(outsiderToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("list returns messages oldest first", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, messagesURL, map[string]any{
			"content": "二番目",
		}, authHeaders(memberToken))
		assertStatus(t, resp, http.StatusCreated)

		resp = performRequest(t, env.app, http.MethodGet, messagesURL, nil, authHeaders(memberToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		data := body["data"].([]any)
		if len(data) < 2 {
			t.Fatalf("expected at least 2 messages, got %d", len(data))
		}
		first := data[0].(map[string]any)
		last := data[len(data)-1].(map[string]any)
		if first["content"].(string) != "おはよう！" {
			t.Fatalf("expected oldest message first, got %q", first["content"])
		}
		if last["content"].(string) != "二番目" {
			t.Fatalf("expected newest message last, got %q", last["content"])
		}
	})

	t.Run("before cursor pages into older messages", func(t *testing.T) {
		base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			message := models.GroupMessage{
				GroupID: uuid.MustParse(groupID),
				UserID:  owner.ID,
				Content: fmt.Sprintf("archive %d", i),
			}
			message.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			message.UpdatedAt = message.CreatedAt
			if err := env.db.Create(&message).Error; err != nil {
				t.Fatalf("failed seeding message: %v", err)
			}
		}

		cursor := base.Add(2 * time.Minute).Format(time.RFC3339)
		resp := performRequest(t, env.app, http.MethodGet,
			messagesURL+"?limit=10&before="+url.QueryEscape(cursor), nil, authHeaders(memberToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		data := body["data"].([]any)
		if len(data) != 2 {
			t.Fatalf("expected 2 archived messages before cursor, got %d", len(data))
		}
		if data[0].(map[string]any)["content"].(string) != "archive 0" {
			t.Fatalf("expected archive 0 first, got %v", data[0])
		}
	})

	t.Run("limit caps the page size", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, messagesURL+"?limit=1", nil, authHeaders(memberToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if data := body["data"].([]any); len(data) != 1 {
			t.Fatalf("expected a single message, got %d", len(data))
		}
	})

	t.Run("malformed before timestamp is rejected", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, messagesURL+"?before=yesterday", nil, authHeaders(memberToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "before must be an RFC3339 timestamp")
	})

	t.Run("author can delete their own message", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, messagesURL, map[string]any{
			"content": "消して",
		}, authHeaders(memberToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		messageID := body["data"].(map[string]any)["id"].(string)

		resp = performRequest(t, env.app, http.MethodDelete, "/api/groups/messages/"+messageID, nil, authHeaders(memberToken))
		assertStatus(t, resp, http.StatusOK)

		var count int64
		env.db.Model(&models.GroupMessage{}).Where("id = ?", messageID).Count(&count)
		if count != 0 {
			t.Fatalf("expected message deleted")
		}
	})

	t.Run("deleting another member's message reads as not found", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, messagesURL, map[string]any{
			"content": "私のもの",
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		messageID := body["data"].(map[string]any)["id"].(string)

		resp = performRequest(t, env.app, http.MethodDelete, "/api/groups/messages/"+messageID, nil, authHeaders(memberToken))
		body = decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "message not found")
	})
}
