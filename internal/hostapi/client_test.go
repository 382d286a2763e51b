package hostapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParsePullURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    PullRequest
		wantErr bool
	}{
		{
			name: "standard",
			url:  "https://github.com/acme/widgets/pull/42",
			want: PullRequest{Owner: "acme", Repo: "widgets", Number: 42},
		},
		{
			name: "files tab suffix",
			url:  "https://github.com/acme/widgets/pull/42/files",
			want: PullRequest{Owner: "acme", Repo: "widgets", Number: 42},
		},
		{name: "repo page", url: "https://github.com/acme/widgets", wantErr: true},
		{name: "issue url", url: "https://github.com/acme/widgets/issues/42", wantErr: true},
		{name: "non-numeric", url: "https://github.com/acme/widgets/pull/abc", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePullURL(tc.url)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPullFillsRefs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/42", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"base": {"sha": "aaa111"}, "head": {"sha": "bbb222"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zap.NewNop())
	pr, err := c.Pull(context.Background(), PullRequest{Owner: "acme", Repo: "widgets", Number: 42})
	require.NoError(t, err)
	assert.Equal(t, "aaa111", pr.BaseRef)
	assert.Equal(t, "bbb222", pr.HeadRef)
}

func TestPullErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", zap.NewNop())
	_, err := c.Pull(context.Background(), PullRequest{Owner: "a", Repo: "b", Number: 1})
	assert.Error(t, err)
}

func TestChangedFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/42/files", r.URL.Path)
		fmt.Fprint(w, `[{"filename": "composer.lock"}, {"filename": "src/app.php"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", zap.NewNop())
	files, err := c.ChangedFiles(context.Background(), PullRequest{Owner: "acme", Repo: "widgets", Number: 42})
	require.NoError(t, err)
	assert.Equal(t, []string{"composer.lock", "src/app.php"}, files)
}

func TestRawFileDegradesToAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("ref") {
		case "good":
			fmt.Fprint(w, `{"packages": []}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", zap.NewNop())
	pr := PullRequest{Owner: "acme", Repo: "widgets", Number: 42}

	assert.Equal(t, `{"packages": []}`, c.RawFile(context.Background(), pr, "good", "composer.lock"))
	assert.Equal(t, "", c.RawFile(context.Background(), pr, "gone", "composer.lock"))

	// Transport failure also degrades to absent rather than erroring.
	dead := NewClient("http://127.0.0.1:1", "", zap.NewNop())
	assert.Equal(t, "", dead.RawFile(context.Background(), pr, "good", "composer.lock"))
}

func TestRawFileNestedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/contents/backend/composer.lock", r.URL.Path)
		fmt.Fprint(w, "content")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", zap.NewNop())
	pr := PullRequest{Owner: "acme", Repo: "widgets", Number: 42}
	assert.Equal(t, "content", c.RawFile(context.Background(), pr, "main", "backend/composer.lock"))
}

func TestFetchPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "snapshot-%s", r.URL.Query().Get("ref"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", zap.NewNop())
	pr := PullRequest{Owner: "acme", Repo: "widgets", Number: 42, BaseRef: "base", HeadRef: "head"}

	oldRaw, newRaw := c.FetchPair(context.Background(), pr, "composer.lock")
	assert.Equal(t, "snapshot-base", oldRaw)
	assert.Equal(t, "snapshot-head", newRaw)
}

func TestNewClientDefaultsToPublicAPI(t *testing.T) {
	c := NewClient("", "", zap.NewNop())
	assert.Equal(t, "https://api.github.com", c.base)

	c = NewClient("https://ghe.example.com/api/v3/", "", zap.NewNop())
	assert.Equal(t, "https://ghe.example.com/api/v3", c.base)
}
