// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package gateway

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/griddeck/griddeck/access"
	"github.com/griddeck/griddeck/core/logger"
	"github.com/griddeck/griddeck/prefs"
)

// columnPrefs reads, writes or deletes the column layout of one table for
// the session identity. Layouts are keyed by identity email; anonymous
// requests get no persistence.
func (g *Gateway) columnPrefs(w http.ResponseWriter, r *http.Request) {
	auth := access.AuthorizationFromContext(r.Context())
	if auth == nil || !auth.Authenticated || auth.Email == "" {
		http.Error(w, "not authorized", http.StatusUnauthorized)
		return
	}
	params := mux.Vars(r)
	tableID, err := strconv.Atoi(params["id"])
	if err != nil {
		http.Error(w, "invalid table id", http.StatusBadRequest)
		return
	}
	key := prefs.ColumnKey(auth.Email, tableID)
	rlog := logger.FromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		var layout prefs.ColumnPrefs
		if _, err := g.store.Read(r.Context(), key, &layout); err != nil {
			rlog.WithError(err).Errorln("cannot read column layout", key)
			http.Error(w, "cannot read preferences", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, layout)

	case http.MethodPut:
		var layout prefs.ColumnPrefs
		if err := json.NewDecoder(r.Body).Decode(&layout); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if err := g.store.Write(r.Context(), key, layout); err != nil {
			rlog.WithError(err).Errorln("cannot write column layout", key)
			http.Error(w, "cannot write preferences", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := g.store.Delete(r.Context(), key); err != nil {
			rlog.WithError(err).Errorln("cannot delete column layout", key)
			http.Error(w, "cannot delete preferences", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
