package instagram

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBusinessAccount(t *testing.T) {
	t.Run("returns the first linked business account", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/me/accounts", r.URL.Path)
			assert.Equal(t, "instagram_business_account", r.URL.Query().Get("fields"))
			assert.Equal(t, "Bearer tok-0", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[{"id":"101"},{"id":"102","instagram_business_account":{"id":"17841400000000000"}}]}`))
		})

		userID, err := client.ResolveBusinessAccount(context.Background(), "tok-0")
		require.NoError(t, err)
		assert.Equal(t, "17841400000000000", userID)
	})

	t.Run("fails when no page links a business account", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[{"id":"101"}]}`))
		})

		_, err := client.ResolveBusinessAccount(context.Background(), "tok-0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no instagram business account")
	})
}

func TestListRecentMedia(t *testing.T) {
	t.Run("requests a fixed page of recent items", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/17841400000000000/media", r.URL.Path)
			query := r.URL.Query()
			assert.Equal(t, "4", query.Get("limit"))
			assert.Equal(t, "id,caption,media_type,media_url,permalink,thumbnail_url,timestamp", query.Get("fields"))
			assert.Equal(t, "Bearer tok-0", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[
				{"id":"m1","media_type":"IMAGE","media_url":"https://cdn.example/m1.jpg","permalink":"https://instagram.com/p/m1","timestamp":"2025-06-01T10:00:00+0000"},
				{"id":"m2","caption":"spring","media_type":"VIDEO","media_url":"https://cdn.example/m2.mp4","thumbnail_url":"https://cdn.example/m2.jpg","permalink":"https://instagram.com/p/m2","timestamp":"2025-05-30T09:00:00+0000"}
			]}`))
		})

		items, err := client.ListRecentMedia(context.Background(), "tok-0", "17841400000000000")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "m1", items[0].ID)
		assert.Equal(t, "IMAGE", items[0].MediaType)
		assert.Empty(t, items[0].Caption)
		assert.Equal(t, "m2", items[1].ID)
		assert.Equal(t, "spring", items[1].Caption)
		assert.Equal(t, "https://cdn.example/m2.jpg", items[1].ThumbnailURL)
	})

	t.Run("caps oversized provider responses", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[{"id":"m1"},{"id":"m2"},{"id":"m3"},{"id":"m4"},{"id":"m5"},{"id":"m6"}]}`))
		})

		items, err := client.ListRecentMedia(context.Background(), "tok-0", "17841400000000000")
		require.NoError(t, err)
		require.Len(t, items, 4)
		assert.Equal(t, "m4", items[3].ID)
	})

	t.Run("propagates token rejection", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
		})

		_, err := client.ListRecentMedia(context.Background(), "tok-dead", "17841400000000000")
		require.Error(t, err)
		assert.True(t, IsTokenRejected(err))
	})
}
