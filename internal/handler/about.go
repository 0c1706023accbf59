package handler

import (
	"net/http"
	"os"
	"time"
)

// Version is the build version, overridable at link time.
var Version = "dev"

type aboutInfo struct {
	Hostname    string `json:"hostname"`
	Type        string `json:"type"`
	Version     string `json:"version"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
}

var about = func() aboutInfo {
	hostname, _ := os.Hostname()
	return aboutInfo{
		Hostname:    hostname,
		Type:        "chatrooms",
		Version:     Version,
		Description: "Chat-room backend with capped, TTL-expiring message logs",
		StartDate:   time.Now().UTC().Format(time.RFC3339),
	}
}()

func (a *API) sendAbout(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, about)
}

// ping answers health probes with the echoed token.
func (a *API) ping(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong/" + r.PathValue("token")))
}
