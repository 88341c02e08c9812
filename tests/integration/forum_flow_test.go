package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*TestDB, *TestServer) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Teardown(context.Background()) })

	ts := NewTestServer(testDB.DB)
	t.Cleanup(ts.Close)

	return testDB, ts
}

func decode(t *testing.T, payload []byte, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(payload, out))
}

func TestForumFlow(t *testing.T) {
	_, ts := setup(t)

	var anonymousName string

	t.Run("register", func(t *testing.T) {
		resp, payload, err := ts.DoJSON(http.MethodPost, "/auth/register", "", map[string]string{
			"reg_no":   "RA2411033010005",
			"password": "secret123",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(payload))

		var body map[string]string
		decode(t, payload, &body)
		anonymousName = body["anonymous_name"]
		assert.NotEmpty(t, anonymousName)
	})

	t.Run("register duplicate conflicts even without prefix", func(t *testing.T) {
		resp, _, err := ts.DoJSON(http.MethodPost, "/auth/register", "", map[string]string{
			"reg_no":   "2411033010005",
			"password": "otherpass",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("register out of range", func(t *testing.T) {
		resp, _, err := ts.DoJSON(http.MethodPost, "/auth/register", "", map[string]string{
			"reg_no":   "2411033010099",
			"password": "secret123",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("login wrong password", func(t *testing.T) {
		resp, _, err := ts.DoJSON(http.MethodPost, "/auth/login", "", map[string]string{
			"reg_no":   "2411033010005",
			"password": "wrong-password",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	var token string
	var sessionCookie *http.Cookie

	t.Run("login", func(t *testing.T) {
		resp, payload, err := ts.DoJSON(http.MethodPost, "/auth/login", "", map[string]string{
			"reg_no":   "2411033010005",
			"password": "secret123",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(payload))

		var body map[string]interface{}
		decode(t, payload, &body)
		token = body["token"].(string)
		require.NotEmpty(t, token)
		assert.Equal(t, anonymousName, body["anonymous_name"])

		for _, cookie := range resp.Cookies() {
			if cookie.Name == "forum_session" {
				sessionCookie = cookie
			}
		}
		require.NotNil(t, sessionCookie)
		assert.True(t, sessionCookie.HttpOnly)
	})

	var messageID string

	t.Run("post message", func(t *testing.T) {
		resp, payload, err := ts.DoJSON(http.MethodPost, "/messages", token, map[string]string{
			"content": "hello anonymous world",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(payload))

		var body map[string]interface{}
		decode(t, payload, &body)
		messageID = body["id"].(string)
		assert.Equal(t, "hello anonymous world", body["content"])
		assert.Equal(t, anonymousName, body["anonymous_name"])
	})

	t.Run("ciphertext at rest", func(t *testing.T) {
		var cipherText string
		err := ts.DB.Pool.QueryRow(context.Background(),
			"SELECT cipher_text FROM messages WHERE id = $1", messageID,
		).Scan(&cipherText)
		require.NoError(t, err)
		assert.NotContains(t, cipherText, "hello anonymous world")
	})

	t.Run("feed is readable without credentials", func(t *testing.T) {
		resp, payload, err := ts.DoJSON(http.MethodGet, "/messages", "", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Messages []map[string]interface{} `json:"messages"`
			Count    int                      `json:"count"`
		}
		decode(t, payload, &body)
		require.Equal(t, 1, body.Count)
		assert.Equal(t, "hello anonymous world", body.Messages[0]["content"])
		assert.Equal(t, anonymousName, body.Messages[0]["anonymous_name"])
	})

	t.Run("session cookie authenticates without bearer", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.Server.URL+"/messages/mine", nil)
		require.NoError(t, err)
		req.AddCookie(sessionCookie)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("quota and posting limit", func(t *testing.T) {
		resp, payload, err := ts.DoJSON(http.MethodGet, "/messages/quota", token, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var quota map[string]int
		decode(t, payload, &quota)
		assert.Equal(t, 1, quota["used"])
		assert.Equal(t, 4, quota["remaining"])

		for i := 0; i < 4; i++ {
			resp, payload, err := ts.DoJSON(http.MethodPost, "/messages", token, map[string]string{
				"content": fmt.Sprintf("filler message %d", i),
			})
			require.NoError(t, err)
			require.Equal(t, http.StatusCreated, resp.StatusCode, string(payload))
		}

		resp, payload, err = ts.DoJSON(http.MethodPost, "/messages", token, map[string]string{
			"content": "one too many",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "60", resp.Header.Get("Retry-After"))
		assert.Contains(t, string(payload), `"retry_after":60`)
	})

	t.Run("like toggle", func(t *testing.T) {
		resp, payload, err := ts.DoJSON(http.MethodPost, "/messages/"+messageID+"/like", token, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var like map[string]interface{}
		decode(t, payload, &like)
		assert.Equal(t, true, like["liked"])
		assert.Equal(t, float64(1), like["like_count"])

		resp, payload, err = ts.DoJSON(http.MethodPost, "/messages/"+messageID+"/like", token, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		decode(t, payload, &like)
		assert.Equal(t, false, like["liked"])
		assert.Equal(t, float64(0), like["like_count"])
	})

	t.Run("report once", func(t *testing.T) {
		resp, payload, err := ts.DoJSON(http.MethodPost, "/messages/"+messageID+"/report", token, map[string]string{
			"reason": "spam",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(payload))

		resp, _, err = ts.DoJSON(http.MethodPost, "/messages/"+messageID+"/report", token, map[string]string{
			"reason": "spam again",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		var reportCount int
		err = ts.DB.Pool.QueryRow(context.Background(),
			"SELECT report_count FROM messages WHERE id = $1", messageID,
		).Scan(&reportCount)
		require.NoError(t, err)
		assert.Equal(t, 1, reportCount)
	})

	t.Run("stats", func(t *testing.T) {
		resp, payload, err := ts.DoJSON(http.MethodGet, "/stats", "", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stats map[string]interface{}
		decode(t, payload, &stats)
		assert.Equal(t, float64(1), stats["members"])
		assert.Equal(t, float64(5), stats["total_messages"])
	})

	t.Run("logout invalidates session", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/auth/logout", nil)
		require.NoError(t, err)
		req.AddCookie(sessionCookie)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// The cookie alone no longer authenticates.
		req, err = http.NewRequest(http.MethodGet, ts.Server.URL+"/messages/mine", nil)
		require.NoError(t, err)
		req.AddCookie(sessionCookie)

		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestLoginThrottling(t *testing.T) {
	_, ts := setup(t)

	resp, _, err := ts.DoJSON(http.MethodPost, "/auth/register", "", map[string]string{
		"reg_no":   "2411033010010",
		"password": "secret123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for i := 0; i < 5; i++ {
		resp, _, err := ts.DoJSON(http.MethodPost, "/auth/login", "", map[string]string{
			"reg_no":   "2411033010010",
			"password": "wrong-password",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// The window is saturated; even the correct password is refused.
	resp, _, err = ts.DoJSON(http.MethodPost, "/auth/login", "", map[string]string{
		"reg_no":   "2411033010010",
		"password": "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// The refusal tells the caller when a slot opens again.
	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 3601)
}

func TestMessageLifecycleSweep(t *testing.T) {
	testDB, ts := setup(t)
	ctx := context.Background()

	resp, _, err := ts.DoJSON(http.MethodPost, "/auth/register", "", map[string]string{
		"reg_no":   "2411033010020",
		"password": "secret123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, payload, err := ts.DoJSON(http.MethodPost, "/auth/login", "", map[string]string{
		"reg_no":   "2411033010020",
		"password": "secret123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login map[string]interface{}
	decode(t, payload, &login)
	token := login["token"].(string)

	resp, payload, err = ts.DoJSON(http.MethodPost, "/messages", token, map[string]string{
		"content": "soon to expire",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var posted map[string]interface{}
	decode(t, payload, &posted)
	messageID := posted["id"].(string)

	// Age the message past the visibility window.
	_, err = testDB.Pool.Exec(ctx,
		"UPDATE messages SET posted_at = now() - interval '25 hours' WHERE id = $1", messageID)
	require.NoError(t, err)

	// Gone from the feed immediately, even before any sweep runs.
	resp, payload, err = ts.DoJSON(http.MethodGet, "/messages", token, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var feed struct {
		Count int `json:"count"`
	}
	decode(t, payload, &feed)
	assert.Zero(t, feed.Count)

	// The sweep marks it inactive.
	deactivated, err := ts.MessageRepo.DeactivateOlderThan(ctx, timeNowMinusHours(24))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deactivated)

	var active bool
	require.NoError(t, testDB.Pool.QueryRow(ctx,
		"SELECT active FROM messages WHERE id = $1", messageID).Scan(&active))
	assert.False(t, active)

	// Past the retention horizon the row is removed outright.
	_, err = testDB.Pool.Exec(ctx,
		"UPDATE messages SET posted_at = now() - interval '49 hours' WHERE id = $1", messageID)
	require.NoError(t, err)

	purged, err := ts.MessageRepo.DeleteOlderThan(ctx, timeNowMinusHours(48))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
