package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/juju/errors"

	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/service"
)

const userIDHeader = "X-User-Id"

type folderList struct {
	Folders []domain.Folder `json:"folders"`
	Total   int             `json:"total"`
}

// caller identifies the requester from X-User-Id, falling back to the
// configured default user when auth is disabled.
func (h *handlers) caller(r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.Header.Get(userIDHeader)); id != "" {
		return id, nil
	}
	if h.deps.Auth.Disabled && h.deps.Auth.DefaultUserID != "" {
		return h.deps.Auth.DefaultUserID, nil
	}
	return "", errors.Unauthorizedf("missing %s header", userIDHeader)
}

// folderRequest resolves the folder service and the caller, rendering the
// error itself when either is unavailable.
func (h *handlers) folderRequest(w http.ResponseWriter, r *http.Request) (*service.FolderService, string, bool) {
	if h.deps.Folders == nil {
		h.fail(w, r, errors.Annotate(ErrNotConfigured, "folder store"), "")
		return nil, "", false
	}
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err, "")
		return nil, "", false
	}
	return h.deps.Folders, caller, true
}

func (h *handlers) listFolders(w http.ResponseWriter, r *http.Request) {
	public, _ := strconv.ParseBool(r.URL.Query().Get("public"))
	if public && h.deps.Folders != nil {
		folders, err := h.deps.Folders.ListPublic(r.Context())
		if err != nil {
			h.fail(w, r, err, "")
			return
		}
		respondJSON(w, http.StatusOK, folderList{Folders: folders, Total: len(folders)})
		return
	}
	svc, caller, ok := h.folderRequest(w, r)
	if !ok {
		return
	}
	folders, err := svc.List(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondJSON(w, http.StatusOK, folderList{Folders: folders, Total: len(folders)})
}

func (h *handlers) createFolder(w http.ResponseWriter, r *http.Request) {
	svc, caller, ok := h.folderRequest(w, r)
	if !ok {
		return
	}
	var in service.FolderInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err, "")
		return
	}
	f, err := svc.Create(r.Context(), caller, in)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondJSON(w, http.StatusCreated, f)
}

func (h *handlers) getFolder(w http.ResponseWriter, r *http.Request) {
	svc, caller, ok := h.folderRequest(w, r)
	if !ok {
		return
	}
	f, err := svc.Get(r.Context(), caller, mux.Vars(r)["id"])
	h.respondFolder(w, r, f, err)
}

func (h *handlers) replaceFolder(w http.ResponseWriter, r *http.Request) {
	svc, caller, ok := h.folderRequest(w, r)
	if !ok {
		return
	}
	var in service.FolderInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err, "")
		return
	}
	f, err := svc.Replace(r.Context(), caller, mux.Vars(r)["id"], in)
	h.respondFolder(w, r, f, err)
}

func (h *handlers) patchFolder(w http.ResponseWriter, r *http.Request) {
	svc, caller, ok := h.folderRequest(w, r)
	if !ok {
		return
	}
	var patch service.FolderPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.fail(w, r, err, "")
		return
	}
	f, err := svc.Patch(r.Context(), caller, mux.Vars(r)["id"], patch)
	h.respondFolder(w, r, f, err)
}

func (h *handlers) deleteFolder(w http.ResponseWriter, r *http.Request) {
	svc, caller, ok := h.folderRequest(w, r)
	if !ok {
		return
	}
	if err := svc.Delete(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err, "Folder")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemsRequest struct {
	Items []service.ItemInput `json:"items"`
}

func (h *handlers) addFolderItems(w http.ResponseWriter, r *http.Request) {
	svc, caller, ok := h.folderRequest(w, r)
	if !ok {
		return
	}
	var req addItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	f, err := svc.AddItems(r.Context(), caller, mux.Vars(r)["id"], req.Items)
	h.respondFolder(w, r, f, err)
}

func (h *handlers) removeFolderItem(w http.ResponseWriter, r *http.Request) {
	svc, caller, ok := h.folderRequest(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	f, err := svc.RemoveItem(r.Context(), caller, vars["id"], service.ItemInput{
		Chain:    vars["chain"],
		Contract: vars["contract"],
		TokenID:  vars["tokenId"],
	})
	h.respondFolder(w, r, f, err)
}

func (h *handlers) respondFolder(w http.ResponseWriter, r *http.Request, f domain.Folder, err error) {
	if err != nil {
		h.fail(w, r, err, "Folder")
		return
	}
	respondJSON(w, http.StatusOK, f)
}
