package compositor

import (
	"encoding/json"
	"net/http"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes exposes the filter's snapshot on the /debug/ mux. The
// handlers only read the published Snapshot, never the live scene.
func (f *Filter) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Compositor cycles", func() any { return f.Snapshot().Cycle })
	debug.KVFunc("Compositor bound streams", func() any { return f.Snapshot().Bound })

	debug.HandleFunc("compositor", "Compositor scene and cycle state (JSON)", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
