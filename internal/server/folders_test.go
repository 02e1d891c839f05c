package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vanshika/nftgateway/internal/config"
	"github.com/vanshika/nftgateway/internal/domain"
)

const folderBody = `{"name":"Favourites","isPublic":false,"items":[{"chain":"eth","contractAddress":"0xBC4CA0EDA7647A8AB7C2061C2E118A18A936F13D","tokenId":"42"}]}`

func createFolder(t *testing.T, h http.Handler, user, body string) domain.Folder {
	t.Helper()
	rec := serve(h, http.MethodPost, "/api/folders", strings.NewReader(body), userIDHeader, user)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var f domain.Folder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	return f
}

func TestFolderLifecycle(t *testing.T) {
	router := NewRouter(zaptest.NewLogger(t), newDeps(t))

	f := createFolder(t, router, "alice", folderBody)
	assert.Equal(t, "alice", f.Owner)
	assert.Equal(t, "Favourites", f.Name)
	require.Len(t, f.Items, 1)
	assert.Equal(t, domain.ChainEthereum, f.Items[0].Chain)
	assert.Equal(t, domain.Address("0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"), f.Items[0].Contract)

	rec := serve(router, http.MethodGet, "/api/folders/"+f.ID, nil, userIDHeader, "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodPatch, "/api/folders/"+f.ID, strings.NewReader(`{"name":"Grails"}`), userIDHeader, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Grails"`)

	rec = serve(router, http.MethodPost, "/api/folders/"+f.ID+"/items",
		strings.NewReader(`{"items":[{"chain":"base","contract":"0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d","tokenId":"0x2A"}]}`),
		userIDHeader, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Folder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated.Items, 2)

	rec = serve(router, http.MethodDelete,
		"/api/folders/"+f.ID+"/items/eth/0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d/42", nil, userIDHeader, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated.Items, 1)
	assert.Equal(t, domain.ChainBase, updated.Items[0].Chain)

	rec = serve(router, http.MethodGet, "/api/folders", nil, userIDHeader, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = serve(router, http.MethodDelete, "/api/folders/"+f.ID, nil, userIDHeader, "alice")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(router, http.MethodGet, "/api/folders/"+f.ID, nil, userIDHeader, "alice")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Folder Not Found", envelope(t, rec).Error)
}

func TestFolderAuth(t *testing.T) {
	router := NewRouter(zaptest.NewLogger(t), newDeps(t))

	rec := serve(router, http.MethodPost, "/api/folders", strings.NewReader(folderBody))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", envelope(t, rec).Error)

	private := createFolder(t, router, "alice", folderBody)
	public := createFolder(t, router, "alice", `{"name":"Showcase","isPublic":true}`)

	rec = serve(router, http.MethodGet, "/api/folders/"+private.ID, nil, userIDHeader, "mallory")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, http.MethodDelete, "/api/folders/"+public.ID, nil, userIDHeader, "mallory")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, http.MethodGet, "/api/folders/"+public.ID, nil, userIDHeader, "mallory")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/folders?public=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list folderList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, public.ID, list.Folders[0].ID)
}

func TestFolderAuthDisabledFallsBackToDefaultUser(t *testing.T) {
	deps := newDeps(t)
	deps.Auth = config.AuthConfig{Disabled: true, DefaultUserID: "dev-user"}
	router := NewRouter(zaptest.NewLogger(t), deps)

	rec := serve(router, http.MethodPost, "/api/folders", strings.NewReader(`{"name":"Mine"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"owner":"dev-user"`)
}

func TestFolderValidation(t *testing.T) {
	router := NewRouter(zaptest.NewLogger(t), newDeps(t))

	for _, body := range []string{
		`{"name":""}`,
		`{"name":"ok","items":[{"chain":"eth","contract":"0x12","tokenId":"1"}]}`,
		`{"name":"ok","items":[{"chain":"eth","contract":"0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d","tokenId":"one"}]}`,
		`{"name":"ok","color":"red"}`,
		`not json`,
	} {
		rec := serve(router, http.MethodPost, "/api/folders", strings.NewReader(body), userIDHeader, "alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}
