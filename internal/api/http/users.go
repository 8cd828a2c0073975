package http

import (
	"bufio"
	"encoding/json"
	"net/http"
	"strings"

	auth "github.com/mind-engage/eduhub-assess/internal/auth/middleware"
	"github.com/mind-engage/eduhub-assess/internal/users"
)

// GET /api/users/me
func MeHandler(accounts Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := accounts.Get(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,nefield=OldPassword"`
}

// PUT /api/users/me/password
func ChangePasswordHandler(accounts Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordReq
		if err := decode(r, &req); err != nil {
			fail(w, err)
			return
		}
		err := accounts.ChangePassword(r.Context(), auth.SubjectFromContext(r.Context()), req.OldPassword, req.NewPassword)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"changed": true})
	}
}

// GET /api/users?role=
func ListUsersHandler(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := dir.List(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /api/users/bulk
//
// Accepts a JSON array body, or a multipart "file" holding a JSON array or
// a CSV with id, username and role columns.
func BulkUpsertUsersHandler(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := readAccounts(r)
		if err != nil {
			fail(w, err)
			return
		}
		if len(accounts) == 0 {
			writeJSON(w, http.StatusOK, map[string]int{"inserted": 0, "updated": 0})
			return
		}
		ins, upd, err := dir.Upsert(r.Context(), accounts)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

func readAccounts(r *http.Request) ([]users.Account, error) {
	var accounts []users.Account
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&accounts); err != nil {
			return nil, badRequest("expected JSON array or multipart file")
		}
		return accounts, nil
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, badRequest("file required")
	}
	defer f.Close()
	br := bufio.NewReader(f)
	// sniff CSV vs JSON by the first non-space byte
	for {
		b, err := br.Peek(1)
		if err != nil {
			return nil, badRequest("empty file")
		}
		if b[0] != ' ' && b[0] != '\n' && b[0] != '\r' && b[0] != '\t' {
			break
		}
		_, _ = br.ReadByte()
	}
	if b, _ := br.Peek(1); b[0] == '[' {
		if err := json.NewDecoder(br).Decode(&accounts); err != nil {
			return nil, badRequest("bad json: %v", err)
		}
		return accounts, nil
	}
	accounts, err = users.ParseCSV(br)
	if err != nil {
		return nil, badRequest("bad csv: %v", err)
	}
	return accounts, nil
}
