package handlers

import (
	"net/http"
	"testing"
)

func TestGroupMemberRankings(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "rank-a@test.com", "太郎", "RANKAA12")
	member, memberToken := createTestUser(t, env.db, "rank-b@test.com", "花子", "RANKBB12")
	_, outsiderToken := createTestUser(t, env.db, "rank-c@test.com", "次郎", "RANKCC12")

	groupID := createTestGroup(t, env.app, ownerToken, "ランキング部", []string{"勉強", "読書"})
	code := groupInviteCode(t, env.db, groupID)
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/groups/join", map[string]any{"code": code}, authHeaders(memberToken))
	assertStatus(t, resp, http.StatusOK)

	share := func(t *testing.T, token string, activityID string) {
		t.Helper()
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/activities/"+activityID+"/share",
			map[string]any{"groupId": groupID}, authHeaders(token))
		assertStatus(t, resp, http.StatusCreated)
	}

	// owner: 30 minutes across 1 activity, mood 4
	a1 := createTestActivity(t, env.db, owner, "勉強", "2024-01-01", 30, 4)
	share(t, ownerToken, a1.ID.String())

	// member: 50 minutes across 2 activities, moods 3 and 5 (average 4.0)
	b1 := createTestActivity(t, env.db, member, "勉強", "2024-01-02", 20, 3)
	b2 := createTestActivity(t, env.db, member, "読書", "2024-01-03", 30, 5)
	share(t, memberToken, b1.ID.String())
	share(t, memberToken, b2.ID.String())

	// outside the requested range, must not count
	late := createTestActivity(t, env.db, owner, "勉強", "2024-02-15", 300, 5)
	share(t, ownerToken, late.ID.String())

	rankingsURL := "/api/groups/" + groupID + "/rankings?from=2024-01-01&to=2024-01-31"

	t.Run("rankings are member-only", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, rankingsURL, nil, authHeaders(outsiderToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("rankings require a YYYY-MM-DD range", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/groups/"+groupID+"/rankings?from=Jan-1&to=2024-01-31", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "from and to must be YYYY-MM-DD")
	})

	t.Run("three boards with formatted labels", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, rankingsURL, nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)

		byDuration := data["byDuration"].([]any)
		if len(byDuration) != 2 {
			t.Fatalf("expected 2 ranked members, got %d", len(byDuration))
		}
		top := byDuration[0].(map[string]any)
		if top["user"].(map[string]any)["uniqueId"].(string) != "RANKBB12" {
			t.Fatalf("expected member with 50 minutes on top, got %v", top["user"])
		}
		if top["label"].(string) != "50分" {
			t.Fatalf("expected label 50分, got %v", top["label"])
		}
		if int(top["rank"].(float64)) != 1 {
			t.Fatalf("expected rank 1, got %v", top["rank"])
		}
		second := byDuration[1].(map[string]any)
		if second["label"].(string) != "30分" || int(second["rank"].(float64)) != 2 {
			t.Fatalf("expected 30分 at rank 2, got %v", second)
		}

		byCount := data["byCount"].([]any)
		if byCount[0].(map[string]any)["label"].(string) != "2回" {
			t.Fatalf("expected top count label 2回, got %v", byCount[0])
		}
		if byCount[1].(map[string]any)["label"].(string) != "1回" {
			t.Fatalf("expected second count label 1回, got %v", byCount[1])
		}

		byMood := data["byMood"].([]any)
		for _, entry := range byMood {
			if entry.(map[string]any)["label"].(string) != "4.0/5" {
				t.Fatalf("expected both moods to average 4.0/5, got %v", entry)
			}
		}
	})

	t.Run("tied mood board orders deterministically", func(t *testing.T) {
		first := performRequest(t, env.app, http.MethodGet, rankingsURL, nil, authHeaders(ownerToken))
		second := performRequest(t, env.app, http.MethodGet, rankingsURL, nil, authHeaders(memberToken))
		firstBody := decodeJSONMap(t, first)
		secondBody := decodeJSONMap(t, second)

		firstMood := firstBody["data"].(map[string]any)["byMood"].([]any)
		secondMood := secondBody["data"].(map[string]any)["byMood"].([]any)
		for i := range firstMood {
			a := firstMood[i].(map[string]any)["user"].(map[string]any)["userId"].(string)
			b := secondMood[i].(map[string]any)["user"].(map[string]any)["userId"].(string)
			if a != b {
				t.Fatalf("expected identical ordering across calls at position %d", i)
			}
		}
	})

	t.Run("range excludes activities outside it", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, rankingsURL, nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		byDuration := body["data"].(map[string]any)["byDuration"].([]any)
		for _, entry := range byDuration {
			if entry.(map[string]any)["label"].(string) == "300分" {
				t.Fatalf("activity outside range must not be ranked")
			}
		}
	})
}
