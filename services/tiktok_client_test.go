package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListVideosRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/video/list/", r.URL.Path)
		assert.Equal(t, videoListFields, r.URL.Query().Get("fields"))
		assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "o1", body["open_id"])
		assert.EqualValues(t, 20, body["max_count"])

		_, _ = w.Write([]byte(`{"data":{"videos":[
			{"id":"v1","title":"first","video_description":"desc","create_time":1700000000,"cover_image_url":"https://cdn.example.com/v1.jpg","embed_link":"https://www.tiktok.com/embed/v1"},
			{"id":"v2","title":"second"}
		],"cursor":1700000000000,"has_more":true},"error":{"code":"ok","message":""}}`))
	}))
	defer srv.Close()

	client := NewTikTokClient(srv.URL+"/v2/video/list/", srv.Client())
	videos, err := client.ListVideos(context.Background(), "a1", "o1")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "v1", videos[0].ID)
	assert.Equal(t, "desc", videos[0].VideoDescription)
	assert.Equal(t, int64(1700000000), videos[0].CreateTime)
	assert.Equal(t, "https://www.tiktok.com/embed/v1", videos[0].EmbedLink)
}

func TestListVideosResponses(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantLen  int
		wantErr  bool
		apiError bool
	}{
		{name: "empty list", body: `{"data":{"videos":[]},"error":{"code":"ok"}}`, wantLen: 0},
		{name: "api error", body: `{"error":{"code":"scope_not_authorized","message":"video.list not granted"}}`, wantErr: true, apiError: true},
		{name: "no data", body: `{}`, wantErr: true},
		{name: "malformed", body: `oops`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			videos, err := NewTikTokClient(srv.URL, srv.Client()).ListVideos(context.Background(), "a1", "o1")
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Len(t, videos, tt.wantLen)
				return
			}
			require.Error(t, err)
			if tt.apiError {
				assert.ErrorIs(t, err, ErrTikTokAPI)
				assert.Contains(t, err.Error(), "video.list not granted")
			}
		})
	}
}
